package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"

	"carousel/pkg/httputil"
)

const maxAssetBytes = 20 << 20

// AssetStore keeps image bytes under a key and returns the URL they are served from.
type AssetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Mirror copies images produced by the image service into an AssetStore so
// that stored slides do not depend on short-lived provider URLs.
type Mirror struct {
	store  AssetStore
	client httputil.Doer
}

func NewMirror(store AssetStore, client httputil.Doer) *Mirror {
	return &Mirror{store: store, client: client}
}

func (m *Mirror) Copy(ctx context.Context, generationID, name, sourceURL string) (string, error) {
	data, contentType, err := httputil.FetchBytes(ctx, m.client, sourceURL, maxAssetBytes)
	if err != nil {
		return "", fmt.Errorf("download asset: %w", err)
	}
	if contentType == "" {
		contentType = "image/png"
	}

	key := path.Join("generations", generationID, assetName(name, sourceURL)+extension(contentType))
	url, err := m.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store asset %s: %w", key, err)
	}

	slog.Debug("Asset mirrored", "source", sourceURL, "url", url, "bytes", len(data))
	return url, nil
}

// assetName ties a stored object to the image it was copied from, so a new
// render of the same slide never lands on the key of an earlier one.
func assetName(name, sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return name + "-" + hex.EncodeToString(sum[:6])
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".png"
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	if strings.HasPrefix(mediaType, "image/") {
		return "." + strings.TrimPrefix(mediaType, "image/")
	}
	return ".bin"
}
