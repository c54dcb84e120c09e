// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"encoding/json"
	"fmt"
	"io"
)

// Comment is one top-level comment or reply as dumped by the collector.
type Comment struct {
	CommentID       string `json:"comment_id"`
	Author          string `json:"author"`
	AuthorChannelID string `json:"author_channel_id,omitempty"`
	Text            string `json:"text"`
	LikeCount       int    `json:"like_count"`
	PublishedAt     string `json:"published_at"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	ReplyCount      int    `json:"reply_count"`
	IsReply         bool   `json:"is_reply"`
	ParentID        string `json:"parent_id,omitempty"`
}

// VideoMetadata describes the video and its channel.
type VideoMetadata struct {
	VideoID              string   `json:"video_id"`
	Title                string   `json:"title"`
	Description          string   `json:"description,omitempty"`
	ChannelID            string   `json:"channel_id"`
	ChannelTitle         string   `json:"channel_title"`
	PublishedAt          string   `json:"published_at"`
	ViewCount            int64    `json:"view_count"`
	LikeCount            int64    `json:"like_count"`
	CommentCount         int64    `json:"comment_count"`
	Duration             string   `json:"duration,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	CategoryID           string   `json:"category_id,omitempty"`
	DefaultLanguage      string   `json:"default_language,omitempty"`
	DefaultAudioLanguage string   `json:"default_audio_language,omitempty"`
	ChannelCountry       string   `json:"channel_country,omitempty"`
	CollectedAt          string   `json:"collected_at,omitempty"`
	CollectionMethod     string   `json:"collection_method,omitempty"`
}

// CollectionSummary is the bookkeeping block of a collector dump.
type CollectionSummary struct {
	VideoID             string `json:"video_id"`
	VideoURL            string `json:"video_url"`
	TotalComments       int    `json:"total_comments"`
	CollectionTimestamp string `json:"collection_timestamp"`
	APIAvailable        bool   `json:"api_available"`
}

// VideoData is a full collector dump for one video.
type VideoData struct {
	Metadata          VideoMetadata     `json:"metadata"`
	Comments          []Comment         `json:"comments"`
	CollectionSummary CollectionSummary `json:"collection_summary"`
}

// LoadVideoData decodes a collector dump.
func LoadVideoData(r io.Reader) (*VideoData, error) {
	var data VideoData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding video data: %w", err)
	}

	if data.Metadata.VideoID == "" {
		data.Metadata.VideoID = data.CollectionSummary.VideoID
	}

	return &data, nil
}
