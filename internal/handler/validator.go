package handler

import (
	"reflect"
	"strings"
	"sync"

	"community_hub/internal/errs"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	trans     ut.Translator
	transOnce sync.Once
)

// InitTrans 初始化校验错误的英文翻译，字段名取 json/form tag
func InitTrans() {
	transOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})

		enT := en.New()
		uni := ut.New(enT, enT)
		trans, _ = uni.GetTranslator("en")
		if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
			panic(err.Error())
		}
	})
}

// bindError 把 gin 绑定错误转换成带字段明细的校验错误
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("invalid params")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if trans != nil {
			fields[fe.Field()] = fe.Translate(trans)
		} else {
			fields[fe.Field()] = fe.Error()
		}
	}
	return errs.ValidationFields(fields)
}
