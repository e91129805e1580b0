package gpu

// SelectRecommended picks the device a workload should prefer: the first
// discrete NVIDIA card, then the first discrete AMD card, then any discrete
// card, then the first device. The slice is not reordered.
func SelectRecommended(devices []DeviceRecord) (int, bool) {
	if len(devices) == 0 {
		return 0, false
	}

	match := func(pred func(DeviceRecord) bool) (int, bool) {
		for i, d := range devices {
			if pred(d) {
				return i, true
			}
		}
		return 0, false
	}

	if i, ok := match(func(d DeviceRecord) bool { return d.Vendor == VendorNvidia && d.IsDiscrete }); ok {
		return i, true
	}
	if i, ok := match(func(d DeviceRecord) bool { return d.Vendor == VendorAmd && d.IsDiscrete }); ok {
		return i, true
	}
	if i, ok := match(func(d DeviceRecord) bool { return d.IsDiscrete }); ok {
		return i, true
	}
	return 0, true
}
