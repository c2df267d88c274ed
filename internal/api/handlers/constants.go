package handlers

import "time"

const (
	timeLayout = time.RFC3339

	// Voice-clone upload limits
	maxAudioSize       = 50 << 20
	maxUploadBody      = maxAudioSize + 1<<20 // audio plus form fields
	minAudioDuration   = 10.0
	audioFormField     = "audio"
	durationFormField  = "duration"
	userIDFormField    = "userId"
	audioContentPrefix = "audio/"
	defaultAudioExt    = ".wav"
)
