// Package bootstrap drives connection establishment for the persistence
// layer: connect, confirm the target database exists (creating it when
// absent), select it, and report the outcome exactly once.
//
// Usage:
//
//	b, err := bootstrap.New(cfg, drv, sugar, func(err error, h driver.Handle) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // h is ready for downstream use
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
