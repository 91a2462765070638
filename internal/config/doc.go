// Package config loads and validates nativebridge configuration.
//
// Configuration lives in a single file next to the application, named
// nativebridge.json, nativebridge.toml or nativebridge.yaml. The format is
// chosen by extension. Missing fields fall back to the defaults returned
// by New.
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println(cfg.Sync.Mode, cfg.Encoder.MaxCommands)
//
// Watch reloads the file whenever it changes on disk.
package config
