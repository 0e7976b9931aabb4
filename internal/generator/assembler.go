package generator

import (
	"fmt"

	"media-proxy/internal/extraction"
	"media-proxy/internal/proxy"
	"media-proxy/internal/sprite"
)

// assemble converts the executed plan into the public SpriteSheet model.
//
// Two filters guard against grid padding leaking into the result even if the
// backend over-produces: a thumbnail is discarded when its raster position
// falls beyond the sheet's actual frame count, and when its timestamp lies
// past the asset's true end.
func assemble(norm proxy.Normalized, plan sprite.Plan, commands []extraction.Command, trueEnd float64, key string) proxy.GenerationResult {
	sheets := make([]proxy.SpriteSheet, 0, len(plan.Sheets))

	for i, sheetPlan := range plan.Sheets {
		sheetID := fmt.Sprintf("%s_sheet_%d", key, sheetPlan.Index)
		sheet := proxy.SpriteSheet{
			ID:                  sheetID,
			URL:                 commands[i].OutputPath,
			Width:               sheetPlan.Width,
			Height:              sheetPlan.Height,
			ThumbnailsPerRow:    sheetPlan.Cols,
			ThumbnailsPerColumn: sheetPlan.Rows,
			ThumbnailWidth:      norm.ThumbWidth,
			ThumbnailHeight:     norm.ThumbHeight,
		}

		frameCount := len(sheetPlan.FrameNumbers)
		cells := sheetPlan.Cols * sheetPlan.Rows
		for idx := 0; idx < cells; idx++ {
			if idx >= frameCount {
				// Padding cell, not a sampled frame
				continue
			}
			global := sheetPlan.StartThumbnail + idx
			timestamp := norm.SourceStartTime + float64(global)*plan.Interval
			if timestamp > trueEnd {
				continue
			}
			row := idx / sheetPlan.Cols
			col := idx % sheetPlan.Cols
			sheet.Thumbnails = append(sheet.Thumbnails, proxy.Thumbnail{
				ID:          fmt.Sprintf("%s_%d", sheetID, idx),
				Timestamp:   timestamp,
				FrameNumber: sheetPlan.FrameNumbers[idx],
				SheetIndex:  sheetPlan.Index,
				X:           col * norm.ThumbWidth,
				Y:           row * norm.ThumbHeight,
				Width:       norm.ThumbWidth,
				Height:      norm.ThumbHeight,
			})
		}

		if len(sheet.Thumbnails) == 0 {
			continue
		}
		sheets = append(sheets, sheet)
	}

	if len(sheets) == 0 {
		return proxy.GenerationResult{
			Success:  false,
			Error:    proxy.ErrMalformedPlan.Error(),
			CacheKey: key,
		}
	}

	return proxy.GenerationResult{
		Success:      true,
		SpriteSheets: sheets,
		CacheKey:     key,
	}
}
