// Package throttle gates calls to an external source against a
// per-minute ceiling.
//
// A [Gate] pairs a [Counter], which keeps a decaying estimate of recent
// calls per minute, with a ceiling and a [Mode]. Every logical call to the
// source is bracketed by [Gate.BeforeCall] and [Gate.AfterCall]:
//
//	gate, err := throttle.New("wikipedia", 200,
//		throttle.WithMode(throttle.Block),
//		throttle.WithLogger(slog.Default()),
//	)
//	if err := gate.BeforeCall(ctx); err != nil {
//		return err
//	}
//	defer gate.AfterCall()
//
// # Modes
//
// In [Block] mode a caller over the ceiling waits, backing off
// exponentially and re-checking the estimate, until the estimate is at or
// under the ceiling. The wait is unbounded unless [WithMaxWait] is set;
// cancel the context to abandon it.
//
// In [Fail] mode a caller over the ceiling gets [ErrRateLimitExceeded]
// straight away and is expected to retry later.
package throttle
