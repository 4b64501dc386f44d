package summary

import "strings"

const (
	markerCOD           = "cash on delivery (cod)"
	markerCODGateway    = "cash_on_delivery"
	markerPartiallyPaid = "gokwik ppcod"
)

// hasCODMarker reports a cash-on-delivery gateway name. Matching ignores case.
func hasCODMarker(gateways string) bool {
	g := strings.ToLower(gateways)
	return strings.Contains(g, markerCOD) || strings.Contains(g, markerCODGateway)
}

func isPartiallyPaid(gateways string) bool {
	return strings.Contains(strings.ToLower(gateways), markerPartiallyPaid)
}

// isCOD counts an order without any gateway as cash on delivery.
func isCOD(gateways string) bool {
	return strings.TrimSpace(gateways) == "" || hasCODMarker(gateways)
}

func isPrepaid(gateways string) bool {
	return strings.TrimSpace(gateways) != "" && !hasCODMarker(gateways) && !isPartiallyPaid(gateways)
}

// Hour-of-day figures only look at explicit gateway names.
func isHourlyPrepaid(gateways string) bool {
	return strings.TrimSpace(gateways) != "" && !hasCODMarker(gateways)
}
