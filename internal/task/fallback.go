package task

import (
	"context"

	"server/internal/domain"
)

// resolveAsset runs the ordered input-resolution chain and returns the
// provider asset id, or "" when every strategy failed. Order matters: a
// user-supplied URL avoids upload encoding issues entirely, the uploaded
// file is next most specific, and the example pool is the last resort.
// Every attempt is logged on the task.
func (o *Orchestrator) resolveAsset(ctx context.Context, taskID string, snapshot domain.Task) string {
	if snapshot.ImageURL != "" {
		o.registry.appendLog(taskID, "trying user-supplied image url: %s", snapshot.ImageURL)
		assetID, err := o.provider.UploadAssetFromURL(ctx, snapshot.ImageURL, "")
		if err == nil {
			o.registry.appendLog(taskID, "image url registered, asset id: %s", assetID)
			return assetID
		}
		o.registry.appendLog(taskID, "image url failed: %s", err)
	}

	if len(snapshot.ImageData) > 0 {
		o.registry.appendLog(taskID, "uploading user image (%s, %d bytes)", snapshot.ImageMIME, len(snapshot.ImageData))
		assetID, err := o.provider.UploadAsset(ctx, snapshot.ImageData, snapshot.ImageMIME, "")
		if err == nil {
			o.registry.appendLog(taskID, "image uploaded, asset id: %s", assetID)
			return assetID
		}
		o.registry.appendLog(taskID, "image upload failed: %s", err)
	}

	return o.resolveExampleAsset(ctx, taskID)
}

// resolveExampleAsset picks a random pool entry first, then walks the
// remaining entries in order until one uploads or the pool is exhausted.
// The task's stored image url is updated to whichever example succeeded.
func (o *Orchestrator) resolveExampleAsset(ctx context.Context, taskID string) string {
	if len(o.examples) == 0 {
		return ""
	}

	first := o.randIndex(len(o.examples))
	chosen := o.examples[first]
	o.registry.appendLog(taskID, "falling back to example image: %s", chosen)

	assetID, err := o.provider.UploadAssetFromURL(ctx, chosen, "")
	if err == nil {
		o.registry.setImageURL(taskID, chosen)
		o.registry.appendLog(taskID, "example image registered, asset id: %s", assetID)
		return assetID
	}
	o.registry.appendLog(taskID, "example image failed: %s", err)

	for i, exampleURL := range o.examples {
		if i == first {
			continue
		}
		o.registry.appendLog(taskID, "trying another example image: %s", exampleURL)
		assetID, err := o.provider.UploadAssetFromURL(ctx, exampleURL, "")
		if err == nil {
			o.registry.setImageURL(taskID, exampleURL)
			o.registry.appendLog(taskID, "example image registered, asset id: %s", assetID)
			return assetID
		}
		o.registry.appendLog(taskID, "example image failed: %s", err)
	}
	return ""
}
