package dto

type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}
