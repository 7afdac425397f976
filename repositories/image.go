package repositories

import (
	"alumni-chat/contract"
	"context"
	"encoding/base64"
	"fmt"
)

const ImagesCollection = "images"

// Image is a small binary attachment kept inline, base64 encoded.
type Image struct {
	ID       string
	MimeType string
	Data     []byte
}

type ImageRepository struct {
	store contract.DocumentStore
}

func NewImageRepository(store contract.DocumentStore) *ImageRepository {
	return &ImageRepository{store: store}
}

func (r *ImageRepository) Save(ctx context.Context, mimeType string, data []byte) (string, error) {
	id, err := r.store.Append(ctx, ImagesCollection, map[string]any{
		"mimeType":  mimeType,
		"data":      base64.StdEncoding.EncodeToString(data),
		"size":      len(data),
		"createdAt": contract.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return id, nil
}

func (r *ImageRepository) Get(ctx context.Context, id string) (Image, error) {
	doc, err := r.store.Get(ctx, contract.JoinPath(ImagesCollection, id))
	if err != nil {
		return Image{}, fmt.Errorf("get image %s: %w", id, err)
	}
	data, err := base64.StdEncoding.DecodeString(doc.String("data"))
	if err != nil {
		return Image{}, fmt.Errorf("decode image %s: %w", id, err)
	}
	return Image{ID: doc.ID, MimeType: doc.String("mimeType"), Data: data}, nil
}
