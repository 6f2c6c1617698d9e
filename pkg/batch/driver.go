// Package batch drives the axial to coronal/sagittal conversion of every
// eligible volume in a blob store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mrireorient/internal/models"
	"mrireorient/pkg/blobstore"
	"mrireorient/pkg/config"
	"mrireorient/pkg/logging"
	"mrireorient/pkg/reorient"
	"mrireorient/pkg/validation"
	"mrireorient/pkg/visualization"
)

// Failure records one item that could not be converted
type Failure struct {
	ID  string
	Key string
	Err error
}

// Report summarises a run
type Report struct {
	// Listed counts every key the source listing yielded
	Listed int

	// Skipped counts blacklisted keys
	Skipped int

	// Converted counts items whose coronal and sagittal volumes were both written
	Converted int

	// Failures holds the failed items in processing order
	Failures []Failure
}

// Driver converts the axial collection of a store.
//
// Items are processed one at a time in listing order:
// 1. Skip blacklisted keys
// 2. Fetch and decode the axial volume
// 3. Derive the coronal and sagittal volumes
// 4. Optionally verify that both hold exactly the source voxels
// 5. Write coronal, then sagittal, then optional previews
//
// A failed item either stops the run or is recorded and skipped, depending on
// the configured policy. The same policy applies to fetch and write failures.
type Driver struct {
	cfg   *config.Config
	store blobstore.Store
	log   logging.Logger

	// blacklist is fixed when the driver is created
	blacklist map[string]struct{}
}

// New creates a driver. The configuration is not modified by the driver.
func New(cfg *config.Config, store blobstore.Store, logger logging.Logger) *Driver {
	return &Driver{
		cfg:       cfg,
		store:     store,
		log:       logger,
		blacklist: cfg.BlacklistSet(),
	}
}

// Identifier extracts the scan identifier from a key: the segment after the last
// '/', cut at its first '.'. "numpy/axial/ABC123.npy" gives "ABC123".
func Identifier(key string) string {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// DestKey returns the key a derived volume is written to
func DestKey(prefix, id string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + id + ".npy"
}

// PreviewKey returns the key of the JPEG preview of one orientation
func PreviewKey(prefix string, o models.Orientation, id string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + o.String() + "/" + id + ".jpg"
}

// Run converts every eligible item until the listing is exhausted.
// It returns the report so far together with the error that stopped the run.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	source := d.cfg.Layout.Source

	d.log.Infof("event=run_start %s", logging.Fields(map[string]interface{}{
		"bucket":  d.cfg.Bucket,
		"source":  source,
		"onError": d.cfg.Processing.OnError,
	}))

	it := d.store.List(ctx, source)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		key, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			d.log.Errorf("event=failed %s", logging.Fields(map[string]interface{}{
				"prefix": source,
				"error":  err.Error(),
			}))
			return report, fmt.Errorf("listing %s: %w", source, err)
		}
		report.Listed++

		if _, found := d.blacklist[key]; found {
			report.Skipped++
			continue
		}

		id := Identifier(key)
		if err := d.convert(ctx, key, id); err != nil {
			d.log.Errorf("event=failed %s", logging.Fields(map[string]interface{}{
				"id":    id,
				"key":   key,
				"error": err.Error(),
			}))
			report.Failures = append(report.Failures, Failure{ID: id, Key: key, Err: err})
			if d.cfg.Processing.OnError != config.OnErrorSkip || errors.Is(err, context.Canceled) {
				return report, err
			}
			continue
		}
		report.Converted++
	}

	d.log.Infof("event=run_end %s", logging.Fields(map[string]interface{}{
		"listed":    report.Listed,
		"skipped":   report.Skipped,
		"converted": report.Converted,
		"failed":    len(report.Failures),
	}))
	return report, nil
}

// convert runs fetch, reorientation and store for one source key
func (d *Driver) convert(ctx context.Context, key, id string) error {
	d.log.Infof("event=fetch %s", logging.Fields(map[string]interface{}{"id": id, "key": key}))

	axial, err := d.store.Get(ctx, key)
	if err != nil {
		return err
	}

	coronal, sagittal, err := reorient.Reorient(axial)
	if err != nil {
		return fmt.Errorf("reorient %s: %w", id, err)
	}

	derived := []struct {
		vol    *models.Volume
		prefix string
	}{
		{coronal, d.cfg.Layout.Coronal},
		{sagittal, d.cfg.Layout.Sagittal},
	}

	if d.cfg.Processing.Verify {
		for _, out := range derived {
			if err := validation.CheckConservation(axial, out.vol); err != nil {
				return fmt.Errorf("verify %s: %w", id, err)
			}
		}
	}

	for _, out := range derived {
		meta := map[string]string{
			"orientation": out.vol.Orientation.String(),
			"shape":       out.vol.ShapeString(),
			"dtype":       out.vol.Dtype,
			"source":      key,
		}
		if err := d.store.Put(ctx, DestKey(out.prefix, id), out.vol, meta); err != nil {
			return err
		}
	}

	if d.cfg.Previews.Enabled {
		for _, out := range derived {
			d.writePreview(ctx, out.vol, id)
		}
	}

	d.log.Infof("event=saved %s", logging.Fields(map[string]interface{}{
		"id":       id,
		"coronal":  DestKey(d.cfg.Layout.Coronal, id),
		"sagittal": DestKey(d.cfg.Layout.Sagittal, id),
		"shape":    axial.ShapeString(),
		"stats":    validation.Summarize(axial).String(),
	}))
	return nil
}

// writePreview stores a JPEG of the middle plane. Failures are only logged.
func (d *Driver) writePreview(ctx context.Context, v *models.Volume, id string) {
	key := PreviewKey(d.cfg.Previews.Prefix, v.Orientation, id)
	data, err := visualization.Preview(v)
	if err == nil {
		err = d.store.PutBytes(ctx, key, data, "image/jpeg")
	}
	if err != nil {
		d.log.Warningf("event=skip_preview %s", logging.Fields(map[string]interface{}{
			"id":    id,
			"key":   key,
			"error": err.Error(),
		}))
	}
}
