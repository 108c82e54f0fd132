/*
Package session multiplexes HTTP transfers over pooled transport sessions.

A Manager keeps at most one valid Session per transport.Configuration. Each
Session owns the transport session, the map of active Transfers keyed by
transport task, and a serial queue on which every transport event for that
session is applied. Events for different sessions run concurrently.

A Transfer moves through Suspended <-> Running -> Finishing -> Finished.
Entering Finishing happens once, which is what makes completion callbacks
fire exactly once when cancellation races network completion.

# Usage

	m := session.NewManager(transport.NewHTTPFactory(opts, logger), nil, metrics, logger)
	defer m.Close()

	s, err := m.ActiveSession(transport.ForegroundConfig())
	if err != nil {
		return err
	}
	t, err := s.Data(req)
	if err != nil {
		return err
	}
	t.OnCompletion(func(resp *session.Response, err error) { ... })
	t.Resume()
*/
package session
