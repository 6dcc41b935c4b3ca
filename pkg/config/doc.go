// Package config loads tap-dayforce configuration.
//
// # Tap configuration
//
// The tap configuration file is JSON or YAML:
//
//	{
//	  "username": "${DAYFORCE_USERNAME}",
//	  "password": "${DAYFORCE_PASSWORD}",
//	  "client_namespace": "acme",
//	  "start_date": "2024-01-01T00:00:00Z",
//	  "email": "data@acme.example",
//	  "streams": {
//	    "employees": {"expand": "WorkAssignments,CompensationSummary,EmploymentStatuses"},
//	    "employee_punches": {"pageSize": 500}
//	  },
//	  "reports": ["HeadcountByDepartment"]
//	}
//
// Required keys are username, password, client_namespace (or the legacy
// client_name) and start_date. Per-stream overrides are checked against each
// stream's parameter allow-list when streams are built, before any request is
// sent.
//
// # Environment Variable Substitution
//
// ${VAR_NAME} anywhere in the file is replaced with the variable's value
// before parsing; unset variables become empty strings.
//
// # Runtime settings
//
// Settings are resolved by viper from command-line flags, TAP_DAYFORCE_*
// environment variables (e.g. TAP_DAYFORCE_RETRY_BUDGET=4m) and defaults.
// ROLLBAR_ACCESS_TOKEN and ROLLBAR_ENVIRONMENT enable error tracking.
package config
