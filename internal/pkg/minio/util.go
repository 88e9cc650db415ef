package minio

import (
	"Leadline/internal/api/config"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
)

// UploadFile 上传文件到 MinIO
func UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("minio client is not initialized")
	}

	uploadInfo, err := Client.PutObject(ctx, BucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return uploadInfo.Key, nil
}

// DeleteFile 删除 MinIO 中的文件
func DeleteFile(ctx context.Context, objectName string) error {
	if Client == nil {
		return fmt.Errorf("minio client is not initialized")
	}
	if err := Client.RemoveObject(ctx, BucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetPublicURL 获取文件的公共访问 URL
func GetPublicURL(objectName string) string {
	cfg := config.Cfg.MinIO
	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, cfg.Endpoint, BucketName, objectName)
}

// ProbeImage 解码图片取宽高，发消息前校验附件真实可渲染
func ProbeImage(data []byte) (width, height int, err error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	bound := img.Bounds()
	return bound.Dx(), bound.Dy(), nil
}

// MakeThumbnail 生成列表预览缩略图并上传，返回对象名
func MakeThumbnail(ctx context.Context, objectName string, data []byte, maxEdge int) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbName := thumbObjectName(objectName)
	if _, err := UploadFile(ctx, thumbName, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbName, nil
}

func thumbObjectName(objectName string) string {
	if idx := strings.LastIndex(objectName, "."); idx > 0 {
		objectName = objectName[:idx]
	}
	return objectName + "_thumb.jpg"
}
