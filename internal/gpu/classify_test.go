package gpu

import "testing"

func TestClassifyVendor(t *testing.T) {
	tests := []struct {
		name string
		want Vendor
	}{
		{"NVIDIA GeForce RTX 3080", VendorNvidia},
		{"GeForce GTX 1660 SUPER", VendorNvidia},
		{"Quadro P2000", VendorNvidia},
		{"Tesla T4", VendorNvidia},
		{"AMD Radeon RX 6800", VendorAmd},
		{"Radeon Pro W6600", VendorAmd},
		{"Intel(R) UHD Graphics 630", VendorIntel},
		{"Intel(R) Iris(R) Xe Graphics", VendorIntel},
		{"HD Graphics 520", VendorIntel},
		{"Microsoft Basic Display Adapter", VendorUnknown},
		{"", VendorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyVendor(tt.name); got != tt.want {
				t.Errorf("ClassifyVendor(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestClassifyVendor_CaseInsensitive(t *testing.T) {
	if got := ClassifyVendor("nvidia geforce rtx 4090"); got != VendorNvidia {
		t.Errorf("lowercase name classified as %s", got)
	}
}

func TestVendor_IsDiscrete(t *testing.T) {
	discrete := map[Vendor]bool{
		VendorNvidia:  true,
		VendorAmd:     true,
		VendorIntel:   false,
		VendorUnknown: false,
	}
	for v, want := range discrete {
		if got := v.IsDiscrete(); got != want {
			t.Errorf("%s.IsDiscrete() = %v, want %v", v, got, want)
		}
	}
}

func TestClassifyArchitecture(t *testing.T) {
	tests := []struct {
		name string
		want Architecture
	}{
		{"NVIDIA GeForce RTX 5090", ArchBlackwell},
		{"NVIDIA GeForce RTX5080", ArchBlackwell},
		{"NVIDIA GeForce RTX 4090", ArchAdaLovelace},
		{"NVIDIA GeForce RTX 3060 Laptop GPU", ArchAmpere},
		{"NVIDIA GeForce RTX 2070 SUPER", ArchTuring},
		{"NVIDIA GeForce GTX 1650", ArchTuring},
		{"NVIDIA GeForce GTX 1080 Ti", ArchUnknown},
		{"Tesla T4", ArchUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyArchitecture(tt.name); got != tt.want {
				t.Errorf("ClassifyArchitecture(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestRequiredVersion(t *testing.T) {
	tests := map[Architecture]string{
		ArchTuring:      "10.0",
		ArchAmpere:      "11.0",
		ArchAdaLovelace: "11.8",
		ArchBlackwell:   "12.0",
		ArchUnknown:     "10.0",
	}
	for arch, want := range tests {
		if got := RequiredVersion(arch); got != want {
			t.Errorf("RequiredVersion(%s) = %s, want %s", arch, got, want)
		}
	}
}

func TestArchitecture_DisplayName(t *testing.T) {
	if got := ArchAdaLovelace.DisplayName(); got != "Ada Lovelace" {
		t.Errorf("DisplayName() = %s", got)
	}
	if got := ArchBlackwell.DisplayName(); got != "Blackwell" {
		t.Errorf("DisplayName() = %s", got)
	}
}
