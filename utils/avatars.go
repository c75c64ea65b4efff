package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Built-in avatar set shipped with the mobile client. Uploaded avatars
// arrive as data URIs, remote ones as http(s) URLs.
const DefaultAvatarPath = "/assets/avatars/default.png"

var AvailableAvatars = []string{
	DefaultAvatarPath,
	"/assets/avatars/avatar-1.png",
	"/assets/avatars/avatar-2.png",
	"/assets/avatars/avatar-3.png",
	"/assets/avatars/avatar-4.png",
	"/assets/avatars/avatar-5.png",
	"/assets/avatars/avatar-6.png",
	"/assets/avatars/avatar-7.png",
	"/assets/avatars/avatar-8.png",
}

func GetDefaultAvatar() string {
	return DefaultAvatarPath
}

// IsUploadedAvatar reports whether the avatar is an inline uploaded image.
func IsUploadedAvatar(avatar string) bool {
	return strings.HasPrefix(avatar, "data:image/")
}

// ResolveAvatar returns a displayable avatar: the value itself when it is a
// known built-in, an upload, or a remote URL; the default otherwise.
func ResolveAvatar(avatar string) string {
	if avatar == "" {
		return DefaultAvatarPath
	}
	if IsUploadedAvatar(avatar) || strings.HasPrefix(avatar, "http://") || strings.HasPrefix(avatar, "https://") {
		return avatar
	}
	for _, known := range AvailableAvatars {
		if known == avatar {
			return avatar
		}
	}
	return DefaultAvatarPath
}

// ProbeAvatarURL issues a HEAD request against a remote avatar and reports
// whether it resolves to an image the client will be able to render.
func ProbeAvatarURL(url string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodHead)

	client := &fasthttp.Client{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if err := client.Do(req, resp); err != nil {
		return fmt.Errorf("avatar probe failed: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("avatar probe returned status %d", resp.StatusCode())
	}
	return nil
}
