package storage

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	AvatarSize    = 720
	ThumbnailSize = 58
)

var ErrBadImage = errors.New("unsupported image")

// Image 已编码的 JPEG
type Image struct {
	Data []byte
	Ext  string
}

// ProcessAvatar 居中裁剪为 720x720 头像和 58x58 缩略图
func ProcessAvatar(r io.Reader) (avatar, thumbnail Image, err error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, Image{}, ErrBadImage
	}
	if avatar, err = encodeJPEG(imaging.Fill(src, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)); err != nil {
		return Image{}, Image{}, err
	}
	if thumbnail, err = encodeJPEG(imaging.Fill(src, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)); err != nil {
		return Image{}, Image{}, err
	}
	return avatar, thumbnail, nil
}

// NormalizeProof 付款凭证只校验并转码，最长边不超过 1600
func NormalizeProof(r io.Reader) (Image, error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, ErrBadImage
	}
	b := src.Bounds()
	if b.Dx() > 1600 || b.Dy() > 1600 {
		src = imaging.Fit(src, 1600, 1600, imaging.Lanczos)
	}
	return encodeJPEG(src)
}

func encodeJPEG(img image.Image) (Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Image{}, errors.Wrap(err, "encode jpeg")
	}
	return Image{Data: buf.Bytes(), Ext: ".jpg"}, nil
}
