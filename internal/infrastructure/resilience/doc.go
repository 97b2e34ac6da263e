/*
Package resilience guards calls to a device agent with a circuit breaker.

When an agent stops answering, every poll round would otherwise wait for a
full transport timeout. The breaker counts consecutive failures and, past a
threshold, fails calls immediately with ErrCircuitOpen until a cool-down
elapses. After the cool-down a limited number of trial calls decide whether
the circuit closes again.

	Closed --[threshold failures]--> Open --[cool-down]--> HalfOpen
	HalfOpen --[trial successes]--> Closed
	HalfOpen --[failure]----------> Open

Errors the agent returns on purpose (unknown app, bad request) should not
trip the circuit; Settings.IsFailure decides which errors count.

	breaker := resilience.New("agent emulator-5554", resilience.Settings{
		FailureThreshold: 5,
		CoolDown:         10 * time.Second,
	})
	apps, err := resilience.Call(ctx, breaker, func(ctx context.Context) ([]string, error) {
		return client.installed(ctx)
	})
*/
package resilience
