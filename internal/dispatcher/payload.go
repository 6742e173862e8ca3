package dispatcher

import (
	"encoding/json"

	"github.com/amoylab/workbench/internal/session"
)

// CursorUpdatePayload is broadcast when a user moves their cursor
type CursorUpdatePayload struct {
	UserID string           `json:"userId"`
	Cursor json.RawMessage  `json:"cursor"`
	User   session.Identity `json:"user"`
}

// CursorRemovePayload is broadcast when an identified user leaves
type CursorRemovePayload struct {
	UserID string `json:"userId"`
}

type TranslationResultPayload struct {
	Translation string `json:"translation"`
}

type RedirectPayload struct {
	URL string `json:"url"`
}
