// Package client wires the LWM2M client together.
//
// A Client builds the resource repository from, in precedence order, the
// stored credentials, the state snapshot, the configured object definition
// files, in-memory sources and the built-in default objects. It owns the
// object store and the request dispatcher and serves the line-oriented
// transport protocol over any reader and writer:
//
//	c := client.New(cfg, client.Options{Logger: logger})
//	if err := c.Start(ctx); err != nil {
//	    return err
//	}
//	defer c.Close(ctx)
//	return c.Run(ctx, os.Stdin, os.Stdout)
//
// When the transport reports that bootstrapping finished, the Security,
// Server and Access Control objects are saved to the credential store so the
// next start skips bootstrap.
package client
