// Package apollo is a client for the Apollo configuration service.
//
// A Client fetches namespaces of an application and watches them for changes
// with the service's long-poll notification API. Each watch runs its own
// session: it delivers the content of every requested namespace first and
// then one batch per change, holding only the namespaces that changed.
//
// Key features:
//   - Namespace formats inferred from the name (properties, json, yaml, toml, xml, txt)
//   - Concurrent re-fetch of changed namespaces only
//   - Optional access-key request signing
//   - An in-memory Store with change subscriptions
//
// Example:
//
//	client, err := apollo.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batches, err := client.Watch(ctx, apollo.WatchRequest{
//	    AppID:      "SampleApp",
//	    Namespaces: []string{"application", "datasource.yml"},
//	})
//	for b := range batches {
//	    ...
//	}
package apollo
