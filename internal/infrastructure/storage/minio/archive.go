package minio

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

const pageContentType = "application/json"

// PageArchive stores raw grant API page bodies, one object per page, under
// grants/<from>_<to>/<rowStart>.json.  Re-fetching a range overwrites the
// previous objects.
type PageArchive struct {
	client *MinIOClient
	logger logging.Logger
}

// NewPageArchive builds an archive writing to client's bucket.
func NewPageArchive(client *MinIOClient, log logging.Logger) *PageArchive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PageArchive{client: client, logger: log.Named("page_archive")}
}

// PageKey returns the object key of the page starting at rowStart.
func PageKey(start, end patent.Date, rowStart int) string {
	return fmt.Sprintf("grants/%s_%s/%d.json", start, end, rowStart)
}

// ArchivePage uploads body.  Failures carry ErrCodeStorage.
func (a *PageArchive) ArchivePage(ctx context.Context, start, end patent.Date, rowStart int, body []byte) error {
	if a.client.isClosed() {
		return errors.New(errors.ErrCodeStorage, "minio client is closed")
	}

	key := PageKey(start, end, rowStart)
	info, err := a.client.client.PutObject(ctx, a.client.Bucket(), key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{
			ContentType: pageContentType,
			UserMetadata: map[string]string{
				"grant-from": start.String(),
				"grant-to":   end.String(),
				"row-start":  strconv.Itoa(rowStart),
			},
		})
	if err != nil {
		return errors.New(errors.ErrCodeStorage, "failed to archive page").
			WithDetail(key).
			WithCause(err)
	}

	a.logger.Debug("archived page",
		logging.String("key", key),
		logging.Int64("size", info.Size),
	)
	return nil
}
