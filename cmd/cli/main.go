// Command vuln-scan discovers subdomains of a target, sorts them by status
// code and checks them for subdomain takeover and 403 bypass.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
