package application

import "context"

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Func adapts a plain function to UseCase.
type Func[C any, R any] func(ctx context.Context, cmd C) (R, error)

func (f Func[C, R]) Execute(ctx context.Context, cmd C) (R, error) { return f(ctx, cmd) }
