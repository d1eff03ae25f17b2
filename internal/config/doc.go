// Package config loads the configuration shared by the delivery CLI and the
// HTTP server.
//
// # Configuration Sources
//
// Sources are applied in this order, each overriding the previous one:
//
//	1. Default values (Default)
//	2. A YAML file: the path given to Load, else $DELIVERY_CONFIG_FILE,
//	   else the first of config.yaml, configs/config.yaml, ../configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Variables are namespaced DELIVERY_<SECTION>_<FIELD>:
//
//	DELIVERY_SERVER_PORT=8080
//	DELIVERY_LOGGING_LEVEL=debug
//	DELIVERY_EXCHANGE_TIMEOUT=20s
//	DELIVERY_EXCHANGE_CZCE_BASE_URL=http://www.czce.com.cn
//	DELIVERY_TRACING_ENABLED=true
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
