/*
Package resilience implements the circuit breaker pattern.

# Overview

The Anthropic client wraps every API call in a breaker so a provider
outage degrades into fast local failures instead of a pile-up of
blocked requests. The breaker is generic; anything that calls an
unreliable dependency can use it.

# Usage

	breaker := resilience.New("anthropic", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                             |
	                                         [failure]
	                                             |
	                                             v
	                                           Open

Closed passes requests through and counts outcomes. Open fails
immediately with ErrCircuitOpen. Half-Open lets a bounded number of
probes through; one failure reopens, enough successes close.
*/
package resilience
