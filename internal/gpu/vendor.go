package gpu

import "strings"

type vendorKeywords struct {
	vendor   Vendor
	keywords []string
}

// Checked in order; the first vendor with a matching keyword wins.
var vendorTable = []vendorKeywords{
	{VendorNvidia, []string{"NVIDIA", "GEFORCE", "RTX", "GTX", "QUADRO", "TESLA"}},
	{VendorAmd, []string{"AMD", "RADEON"}},
	{VendorIntel, []string{"INTEL", "UHD", "IRIS", "HD GRAPHICS"}},
}

// ClassifyVendor determines the vendor from an adapter name.
func ClassifyVendor(name string) Vendor {
	upper := strings.ToUpper(name)
	for _, entry := range vendorTable {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.vendor
			}
		}
	}
	return VendorUnknown
}
