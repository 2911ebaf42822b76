package dto

type SpeakRequest struct {
	Text      string `json:"text" validate:"required,max=10000"`
	Language  string `json:"language" validate:"omitempty,len=2"`
	Translate bool   `json:"translate"`
}

type SpeakResponse struct {
	// Audio is base64-encoded MP3 data.
	Audio    string `json:"audio"`
	Language string `json:"language"`
	Cached   bool   `json:"cached"`
}
