// Package storage keeps uploaded images behind opaque keys.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"community_hub/internal/config"
	"community_hub/internal/pkg"

	"github.com/qiniu/go-sdk/v7/auth"
	"github.com/qiniu/go-sdk/v7/storage"
)

// BlobStore 保存对象并返回可访问地址
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

type QiniuStore struct {
	mac    *auth.Credentials
	bucket string
	domain string
	cfg    storage.Config
}

func NewQiniuStore(c config.QiniuConfig) *QiniuStore {
	cfg := storage.Config{UseHTTPS: true}
	if region, ok := storage.GetRegionByID(storage.RegionID(c.Region)); ok {
		cfg.Region = &region
	}
	return &QiniuStore{
		mac:    auth.New(c.AccessKey, c.SecretKey),
		bucket: c.Bucket,
		domain: strings.TrimSuffix(c.Domain, "/"),
		cfg:    cfg,
	}
}

func (s *QiniuStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	putPolicy := storage.PutPolicy{Scope: s.bucket + ":" + key}
	token := putPolicy.UploadToken(s.mac)

	uploader := storage.NewFormUploader(&s.cfg)
	ret := storage.PutRet{}
	if err := uploader.Put(ctx, &ret, token, key, bytes.NewReader(data), int64(len(data)), &storage.PutExtra{}); err != nil {
		return "", err
	}
	return s.domain + "/" + ret.Key, nil
}

func (s *QiniuStore) Delete(_ context.Context, key string) error {
	return storage.NewBucketManager(s.mac, &s.cfg).Delete(s.bucket, key)
}

// NewKey 目录 + 雪花 ID，不暴露原始文件名
func NewKey(folder, ext string) string {
	return fmt.Sprintf("%s/%d%s", folder, pkg.GenID(), ext)
}
