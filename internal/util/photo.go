package util

import (
	"encoding/json"
	"fmt"
	"os"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// PhotoInfo 照片元数据
type PhotoInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// GetPhotoInfo probes an image file for its dimensions using ffprobe.
func GetPhotoInfo(photoPath string) (*PhotoInfo, error) {
	fileInfo, err := os.Stat(photoPath)
	if err != nil {
		return nil, fmt.Errorf("photo file not found: %v", err)
	}

	jsonOutput, err := ffmpeg.Probe(photoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe photo: %v", err)
	}

	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Format string `json:"format_name"`
		} `json:"format"`
	}

	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("failed to parse probe output: %v", err)
	}

	var width, height int
	for _, stream := range result.Streams {
		if stream.CodecType == "video" && stream.Width > 0 {
			width = stream.Width
			height = stream.Height
			break
		}
	}

	return &PhotoInfo{
		Width:  width,
		Height: height,
		Format: result.Format.Format,
		Size:   fileInfo.Size(),
	}, nil
}
