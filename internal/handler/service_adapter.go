package handler

import (
	"github.com/hitoshi/moodboard/internal/auth"
	"github.com/hitoshi/moodboard/internal/moodboard"
	"github.com/hitoshi/moodboard/internal/pins"
)

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ PinsServiceInterface = (*pins.Service)(nil)
var _ MoodboardServiceInterface = (*moodboard.Service)(nil)
