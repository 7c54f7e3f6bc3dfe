package bench

// SmallProfile is a quick mixed workload across two stores.
func SmallProfile(versions int64) []StoreParams {
	return []StoreParams{
		{
			StoreKey:         "bank",
			KeyMean:          32,
			KeyStdDev:        3,
			ValueMean:        100,
			ValueStdDev:      400,
			InitialSize:      20_000,
			FinalSize:        60_000,
			ChangePerVersion: perVersion(400_000, versions),
			DeleteFraction:   0.25,
		},
		{
			StoreKey:         "staking",
			KeyMean:          24,
			KeyStdDev:        2,
			ValueMean:        1_200,
			ValueStdDev:      2_000,
			InitialSize:      5_000,
			FinalSize:        15_000,
			ChangePerVersion: perVersion(100_000, versions),
			DeleteFraction:   0.25,
		},
	}
}

// UniformProfile is a single store of short random keys with a high delete
// rate, stressing Remove and the size cache.
func UniformProfile(versions int64) []StoreParams {
	return []StoreParams{
		{
			StoreKey:         "uniform",
			KeyMean:          16,
			KeyStdDev:        1,
			ValueMean:        32,
			ValueStdDev:      8,
			InitialSize:      50_000,
			FinalSize:        100_000,
			ChangePerVersion: perVersion(1_000_000, versions),
			DeleteFraction:   0.45,
		},
	}
}

// SequentialProfile inserts keys in ascending order, the worst case for an
// unbalanced tree: every store degrades to a chain.
func SequentialProfile(versions int64) []StoreParams {
	return []StoreParams{
		{
			StoreKey:         "sequential",
			ValueMean:        32,
			ValueStdDev:      8,
			InitialSize:      500,
			FinalSize:        1_000,
			ChangePerVersion: perVersion(2_000, versions),
			DeleteFraction:   0.1,
			SequentialKeys:   true,
		},
	}
}

// perVersion spreads total changes evenly over versions.
func perVersion(total, versions int64) int {
	if versions < 1 {
		return 0
	}
	return int(total / versions)
}

// Profile returns the named generator profile.
func Profile(name string, versions int64) ([]StoreParams, bool) {
	switch name {
	case "small":
		return SmallProfile(versions), true
	case "uniform":
		return UniformProfile(versions), true
	case "sequential":
		return SequentialProfile(versions), true
	default:
		return nil, false
	}
}
