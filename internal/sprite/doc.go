// Package sprite plans sprite sheet layouts for video scrub strips.
//
// Given a clip's duration, frame rate and thumbnail dimensions it computes:
//   - the sampling interval (denser for short clips, sparser for long ones)
//   - the exact source frame number for every thumbnail
//   - the partitioning of thumbnails into sheets
//   - the cols x rows grid for each sheet, chosen to avoid empty cells
//
// The package is pure arithmetic; extraction and caching live elsewhere.
package sprite
