// Package projection maps the loosely typed "results" object of a scan
// service response onto model.FindingSet.
//
// Project is total: any mapping of keys to JSON values produces a FindingSet
// and no key is ever dropped. Check results become typed CheckResult values,
// "*_details" keys become detail payloads attached to their parent check,
// and "ip_address" decorates the open-ports finding.
package projection
