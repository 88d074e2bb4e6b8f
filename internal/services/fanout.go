package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// errUnsettled 标记 ctx 结束时仍未返回的调用。
var errUnsettled = errors.New("fetch not settled before context was done")

type fanOutResult[V any] struct {
	index int
	value V
	err   error
}

// fanOut 以最多 limit 个并发对每个 key 调用 fetch，结果按 key 的下标返回。
//
// 单个 fetch 失败只记录在 errs 中，不会取消其余调用。ctx 结束后立即停止等待，
// 尚未返回的 key 记为 errUnsettled；已启动的 fetch 由其自身观察 ctx 退出。
func fanOut[K any, V any](ctx context.Context, keys []K, limit int, fetch func(context.Context, K) (V, error)) ([]V, []error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	if len(keys) == 0 {
		return values, errs
	}

	// 缓冲区容纳全部结果，调用方提前返回后发送方也不会阻塞。
	results := make(chan fanOutResult[V], len(keys))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	go func() {
		for i, key := range keys {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				value, err := fetch(ctx, key)
				results <- fanOutResult[V]{index: i, value: value, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	settled := make([]bool, len(keys))
	collect := func(r fanOutResult[V]) {
		settled[r.index] = true
		values[r.index] = r.value
		errs[r.index] = r.err
	}

loop:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break loop
			}
			collect(r)
		case <-ctx.Done():
			// 收下已经到达的结果，其余视为未完成。
			for {
				select {
				case r, ok := <-results:
					if !ok {
						break loop
					}
					collect(r)
				default:
					break loop
				}
			}
		}
	}

	for i := range keys {
		if !settled[i] {
			var zero V
			values[i] = zero
			errs[i] = fmt.Errorf("%w: %w", errUnsettled, context.Cause(ctx))
		}
	}
	return values, errs
}
