// Package tracekit is a leveled terminal logger that can mirror entries to a
// remote collector.
//
// Every call renders locally first, either as one line or as a box, and then
// decides on its own whether to forward the entry. Only info, warn, error and
// fatal entries at or above RemoteMinLevel are forwarded, and the send runs in
// the background: a dead collector never blocks or fails a log call.
//
//	l, err := tracekit.New(
//		tracekit.WithNamespace("API"),
//		tracekit.WithRemote(true),
//		tracekit.WithTransportType(transport.KindWebSocket),
//		tracekit.WithAuthToken(os.Getenv("TRACEKIT_TOKEN")),
//	)
//	if err != nil {
//		return err
//	}
//	defer l.Close()
//
//	l.Info("server ready", tracekit.WithMetadata(map[string]any{"port": 8080}))
//	l.Error("upstream down", tracekit.Boxed(true), tracekit.WithTitle("PAYMENTS"))
//	l.Flush()
//
// Level filtering uses a fixed priority table in which debug ranks below
// trace: debug=0, trace=1, info=2, success=3, warn=4, error=5, fatal=6.
//
// The package-level functions (Info, Warn, ...) use a lazily built default
// logger. Tests swap it with SetDefault and drop it with ResetDefault.
package tracekit
