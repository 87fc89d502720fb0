// Package providers imports all zone provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/dns-gitops/internal/dns/bindzone"
	_ "github.com/yuriy-kovalchuk/dns-gitops/internal/dns/opnsense"
	_ "github.com/yuriy-kovalchuk/dns-gitops/internal/dns/yamlzone"
)
