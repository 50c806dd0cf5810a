// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
)

// MaxAvatarBytes caps the size of an avatar image file. Avatars are stored
// inline as data URIs in the session store, so huge files would bloat every
// profile write.
const MaxAvatarBytes = 2 << 20 // 2 MiB

// =============================================================================
// USER PROFILE
// =============================================================================

// UserProfile holds the local user's display identity. It is persisted
// immediately on every change.
type UserProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"` // data-URI, empty when unset
}

// DefaultProfile returns the profile used before the user customizes it.
func DefaultProfile() UserProfile {
	return UserProfile{Name: "Local User"}
}

// HasAvatar returns true if an avatar image is set.
func (p UserProfile) HasAvatar() bool {
	return p.Avatar != ""
}

// =============================================================================
// AVATAR LOADING
// =============================================================================

// AvatarFromFile reads an image file and encodes it as a data URI suitable
// for UserProfile.Avatar. The MIME type is sniffed from the file content.
func AvatarFromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if info.Size() > MaxAvatarBytes {
		return "", fmt.Errorf("avatar file too large: %d bytes (max %d)", info.Size(), MaxAvatarBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}

	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return "", fmt.Errorf("unsupported avatar type %q", mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
