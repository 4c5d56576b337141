package artifacts

import "context"

// PutWithRetry writes an artifact, retrying the write once before giving
// up. Disk writes are the one local operation worth a second chance; the
// overwrite-idempotent Put makes the repeat safe.
func PutWithRetry(ctx context.Context, store *Store, entryID string, kind Kind, seq int, ext string, data []byte) (Record, error) {
	rec, err := store.Put(ctx, entryID, kind, seq, ext, data)
	if err == nil {
		return rec, nil
	}
	return store.Put(ctx, entryID, kind, seq, ext, data)
}
