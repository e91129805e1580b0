package fallback

import "context"

// Execute runs gpuFn when the manager is on a GPU and cpuFn otherwise.
// When gpuFn fails and auto-fallback is enabled, the manager falls back to
// the CPU and cpuFn runs once; with auto-fallback disabled the GPU error is
// returned and the state is left unchanged. The bool reports whether the
// returned value came from the GPU.
func Execute[T any](m *Manager, gpuFn, cpuFn func() (T, error)) (T, bool, error) {
	return ExecuteContext(context.Background(), m,
		func(context.Context) (T, error) { return gpuFn() },
		func(context.Context) (T, error) { return cpuFn() },
	)
}

// ExecuteContext is Execute with a context passed to both closures. When ctx
// is already done after a GPU failure, ctx.Err() is returned without a
// fallback and the CPU attempt is skipped.
func ExecuteContext[T any](ctx context.Context, m *Manager, gpuFn, cpuFn func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	if !m.IsUsingGPU() {
		m.logger.Debug("fallback.execute.cpu", "Executing in CPU mode", nil)
		v, err := cpuFn(ctx)
		if err != nil {
			return zero, false, err
		}
		return v, false, nil
	}

	v, gpuErr := gpuFn(ctx)
	if gpuErr == nil {
		m.logger.Debug("fallback.execute.gpu", "GPU execution succeeded", nil)
		return v, true, nil
	}

	if !m.IsAutoFallbackAllowed() {
		m.logger.Warn("fallback.disabled", "GPU execution failed and auto-fallback is disabled", map[string]interface{}{
			"error": gpuErr.Error(),
		})
		return zero, false, gpuErr
	}

	// A canceled run is not a device failure.
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	details := gpuErr.Error()
	m.TriggerFallback(ExecutionFailedReason, &details)

	m.logger.Info("fallback.retry.cpu", "Retrying in CPU mode", nil)
	v, err := cpuFn(ctx)
	if err != nil {
		m.logger.Warn("fallback.cpu.failed", "CPU execution failed as well", map[string]interface{}{
			"error": err.Error(),
		})
		return zero, false, err
	}
	return v, false, nil
}
