package models

import "time"

// Video is the stored record for one uploaded recording. CreatedAt is
// Unix milliseconds so the JSON shape matches what share pages expect.
type Video struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	CreatedAt   int64  `json:"createdAt"`
	Views       int64  `json:"views"`
	Completions int64  `json:"completions"`
}

func NewVideo(id, url string, now time.Time) *Video {
	return &Video{
		ID:        id,
		URL:       url,
		CreatedAt: now.UnixMilli(),
	}
}

func (v *Video) Created() time.Time {
	return time.UnixMilli(v.CreatedAt)
}
