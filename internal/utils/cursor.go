package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

type AttendeeCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeAttendeeCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(AttendeeCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeAttendeeCursor(cursor string) (AttendeeCursor, error) {
	if cursor == "" {
		return AttendeeCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return AttendeeCursor{}, err
	}

	var c AttendeeCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return AttendeeCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return AttendeeCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
