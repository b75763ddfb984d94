// Package config loads runtime configuration for the PVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or
//     $PVAULT_CONFIG.
//  3. Environment: PVAULT_API_URL, PVAULT_DATA_DIR, PVAULT_DOWNLOAD_DIR.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   RemoteAPI base URL (default http://localhost:8080/api)
//	-d string   data directory for the local SQLite database
//	-o string   download destination, a directory or s3://bucket/prefix
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "api_url": "https://pvault.example/api",
//	  "data_dir": "/var/lib/pvault",
//	  "download_dir": "s3://prescriptions/exports",
//	  "request_timeout": "15s",
//	  "log_level": "debug",
//	  "requests_per_second": 2,
//	  "burst": 4,
//	  "s3_region": "us-east-1",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "s3_access_key": "minioadmin",
//	  "s3_secret_key": "minioadmin"
//	}
//
// Rate limiting and S3 settings are JSON-only.
package config
