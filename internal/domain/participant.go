// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

// ParticipantID tells apart two sessions that used the same display name.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

func (id ParticipantID) String() string { return string(id) }

type MuteState struct {
	AudioMuted bool
	VideoMuted bool
}

// Apply overwrites only the flags that are present.
func (m MuteState) Apply(audio, video *bool) MuteState {
	if audio != nil {
		m.AudioMuted = *audio
	}
	if video != nil {
		m.VideoMuted = *video
	}
	return m
}

// UserState is one entry of a room_state snapshot.
type UserState struct {
	Name       string `json:"name"`
	AudioMuted bool   `json:"audio_muted"`
	VideoMuted bool   `json:"video_muted"`
}
