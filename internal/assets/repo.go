package assets

import "context"

type Repo interface {
	Create(ctx context.Context, asset Asset) error
	Get(ctx context.Context, id string) (Asset, error)
	List(ctx context.Context) ([]Asset, error)
	Delete(ctx context.Context, id string) error
	ListFileIDs(ctx context.Context) ([]string, error)
}
