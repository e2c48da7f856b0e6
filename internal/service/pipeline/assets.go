package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/id"
	"reel/internal/pkg/storage"
)

// Assets 生成素材的存取，key 统一以 generation ID 为前缀
type Assets struct {
	store storage.Storage
}

// NewAssets 创建素材存取
func NewAssets(store storage.Storage) *Assets {
	return &Assets{store: store}
}

// SaveImage 上传一张生成图片
func (a *Assets) SaveImage(ctx context.Context, generationID string, kind string, img generator.Image, prompt string, typ model.ImageType) (*model.MoodboardImage, error) {
	if len(img.Data) == 0 {
		return nil, errors.New("generator returned an empty image")
	}
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	key := fmt.Sprintf("%s/%s-%s%s", generationID, kind, id.Short(), extensionFor(mimeType))
	url, err := a.store.Upload(ctx, key, bytes.NewReader(img.Data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return &model.MoodboardImage{
		Type:     typ,
		MimeType: mimeType,
		Prompt:   prompt,
		AssetKey: key,
		URL:      url,
	}, nil
}

// Load 读取参考图内容
func (a *Assets) Load(ctx context.Context, ref model.ImageRef) (generator.Image, error) {
	rc, err := a.store.Download(ctx, ref.AssetKey)
	if err != nil {
		return generator.Image{}, fmt.Errorf("download %s: %w", ref.AssetKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return generator.Image{}, fmt.Errorf("read %s: %w", ref.AssetKey, err)
	}
	return generator.Image{Data: data, MimeType: ref.MimeType}, nil
}

// LoadVisuals 把冻结的引用集合解析成请求用的图片，顺序不变
func (a *Assets) LoadVisuals(ctx context.Context, bundle *model.VisualsBundle) (*generator.ApprovedVisuals, error) {
	visuals := &generator.ApprovedVisuals{
		CharacterImages:       make([]generator.Image, 0, len(bundle.CharacterImages)),
		CharacterDescriptions: append([]string(nil), bundle.CharacterDescriptions...),
		SettingDescription:    bundle.SettingDescription,
	}
	for _, ref := range bundle.CharacterImages {
		img, err := a.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		visuals.CharacterImages = append(visuals.CharacterImages, img)
	}
	setting, err := a.Load(ctx, bundle.SettingImage)
	if err != nil {
		return nil, err
	}
	visuals.SettingImage = setting
	return visuals, nil
}

// Delete 尽力删除，失败只记日志
func (a *Assets) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := a.store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("asset_key", key).Msg("failed to delete asset")
		}
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".png"
	}
}
