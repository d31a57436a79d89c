package ports

import "context"

// GenreTagger classifies a song into a single coarse genre label from its
// name and artist credits. Implementations may be slow (LLM-backed); callers
// run it off the command path.
type GenreTagger interface {
	TagGenre(ctx context.Context, name string, artists []string) (string, error)
}
