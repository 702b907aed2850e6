package mysql

import "errors"

var (
	// ErrStateChanged 条件更新未命中：记录已不处于期望状态
	ErrStateChanged = errors.New("record state changed")
	// ErrOwnerProtected 拥有者的成员关系不可删除或降级
	ErrOwnerProtected = errors.New("owner membership is protected")
	ErrSlugTaken      = errors.New("slug already taken")
	ErrAlreadyMember  = errors.New("already a member")
	ErrAlreadyExists  = errors.New("record already exists")
	// ErrPersonIDTaken 档案编号重试后仍冲突
	ErrPersonIDTaken = errors.New("person id taken")
)
