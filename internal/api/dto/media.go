package dto

// MediaUploadDTO 附件上传结果
type MediaUploadDTO struct {
	ObjectName string `json:"object_name"`
	URL        string `json:"url"`
	ThumbURL   string `json:"thumb_url,omitempty"`
	MimeType   string `json:"mime_type"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}
