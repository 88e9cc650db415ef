package handler

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/minio"
	"Leadline/internal/pkg/response"
	"Leadline/internal/pkg/util"
	"Leadline/internal/service"
	"bytes"
	"io"
	log "log/slog"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const thumbnailMaxEdge = 512

type MediaHandler struct{}

func NewMediaHandler() *MediaHandler {
	return &MediaHandler{}
}

// Upload 附件上传：入对象存储，图片顺带探测尺寸并生成缩略图
func (s *MediaHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	contentType, err := util.GetSafeContentType(reader)
	if err != nil {
		response.Error(c, service.ErrAttachmentInvalid)
		return
	}

	isImage := strings.HasPrefix(contentType, consts.MimePrefixImage)
	isVideo := strings.HasPrefix(contentType, consts.MimePrefixVideo)
	isAudio := strings.HasPrefix(contentType, consts.MimePrefixAudio)
	if !isImage && !isVideo && !isAudio {
		response.Error(c, service.ErrAttachmentInvalid)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, service.ErrAttachmentInvalid)
		return
	}

	ext := path.Ext(file.Filename)
	objectName := time.Now().Format("2006/01/02/") + uuid.NewString() + ext

	fileKey, err := minio.UploadFile(c.Request.Context(), objectName, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "MinIO upload failed", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	res := &dto.MediaUploadDTO{
		ObjectName: fileKey,
		URL:        minio.GetPublicURL(fileKey),
		MimeType:   contentType,
	}

	if isImage {
		if w, h, err := minio.ProbeImage(data); err == nil {
			res.Width, res.Height = w, h
		} else {
			log.WarnContext(c.Request.Context(), "probe image failed", "object", fileKey, "err", err)
		}
		if thumbKey, err := minio.MakeThumbnail(c.Request.Context(), fileKey, data, thumbnailMaxEdge); err == nil {
			res.ThumbURL = minio.GetPublicURL(thumbKey)
		} else {
			log.WarnContext(c.Request.Context(), "make thumbnail failed", "object", fileKey, "err", err)
		}
	}

	response.Success(c, res)
}
