package segment

import "errors"

// ErrEmbedding reports a failure of the embeddings backend during
// segmentation. The run aborts; no partial unit list is produced and
// segmentation is not retried internally.
var ErrEmbedding = errors.New("segment: embedding backend failure")
