package spatialmath

import "gonum.org/v1/gonum/mat"

// Kalman6 is a constant-velocity Kalman filter over state (x, y, z, vx,
// vy, vz), used by the tracking package to smooth marker position (the
// plane tracker does not filter position) the way spec.md §4.6 requires. It mirrors the teacher's
// position/velocity state in internal/lidar/l5tracks/tracking.go
// (TrackedObject.X/Y/VX/VY plus its 4x4 covariance P), generalized from
// 2D to 3D and built on gonum/mat instead of a fixed-size array so the
// propagation math reads as ordinary matrix algebra.
type Kalman6 struct {
	state *mat.VecDense // 6x1: x,y,z,vx,vy,vz
	cov   *mat.Dense    // 6x6 covariance

	processNoisePos float64
	processNoiseVel float64
	measurementNoise float64

	initialized bool
}

// NewKalman6 constructs a filter with the given process/measurement
// noise. Noise values are variances (sigma squared), matching the
// teacher's TrackerConfig.ProcessNoisePos/ProcessNoiseVel/MeasurementNoise
// naming and units.
func NewKalman6(processNoisePos, processNoiseVel, measurementNoise float64) *Kalman6 {
	cov := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		cov.Set(i, i, 1.0)
	}
	return &Kalman6{
		state:            mat.NewVecDense(6, nil),
		cov:              cov,
		processNoisePos:  processNoisePos,
		processNoiseVel:  processNoiseVel,
		measurementNoise: measurementNoise,
	}
}

// Predict advances the filter by dt seconds using the constant-velocity
// model: position += velocity * dt.
func (k *Kalman6) Predict(dt float64) {
	if !k.initialized {
		return
	}
	f := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		f.Set(i, i, 1)
	}
	f.Set(0, 3, dt)
	f.Set(1, 4, dt)
	f.Set(2, 5, dt)

	var newState mat.VecDense
	newState.MulVec(f, k.state)
	k.state = &newState

	q := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		q.Set(i, i, k.processNoisePos)
		q.Set(i+3, i+3, k.processNoiseVel)
	}

	var fp, fpft mat.Dense
	fp.Mul(f, k.cov)
	fpft.Mul(&fp, f.T())
	fpft.Add(&fpft, q)
	k.cov = &fpft
}

// Update incorporates a new position measurement (x, y, z).
func (k *Kalman6) Update(x, y, z float64) Vec3 {
	if !k.initialized {
		k.state.SetVec(0, x)
		k.state.SetVec(1, y)
		k.state.SetVec(2, z)
		k.initialized = true
		return Vec3{x, y, z}
	}

	// Measurement matrix H picks out position from the 6-state vector.
	h := mat.NewDense(3, 6, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)
	h.Set(2, 2, 1)

	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		r.Set(i, i, k.measurementNoise)
	}

	z3 := mat.NewVecDense(3, []float64{x, y, z})

	var hx mat.VecDense
	hx.MulVec(h, k.state)
	var innovation mat.VecDense
	innovation.SubVec(z3, &hx)

	var hp, hpht mat.Dense
	hp.Mul(h, k.cov)
	hpht.Mul(&hp, h.T())
	hpht.Add(&hpht, r)

	var s mat.Dense
	if err := s.Inverse(&hpht); err != nil {
		// Singular innovation covariance: skip the update rather than
		// propagating NaNs into the tracked state.
		return Vec3{k.state.AtVec(0), k.state.AtVec(1), k.state.AtVec(2)}
	}

	var pht mat.Dense
	pht.Mul(k.cov, h.T())
	var gain mat.Dense
	gain.Mul(&pht, &s)

	var correction mat.VecDense
	correction.MulVec(&gain, &innovation)
	var newState mat.VecDense
	newState.AddVec(k.state, &correction)
	k.state = &newState

	var gh mat.Dense
	gh.Mul(&gain, h)
	identity := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		identity.Set(i, i, 1)
	}
	var ighp mat.Dense
	ighp.Sub(identity, &gh)
	var newCov mat.Dense
	newCov.Mul(&ighp, k.cov)
	k.cov = &newCov

	return Vec3{k.state.AtVec(0), k.state.AtVec(1), k.state.AtVec(2)}
}

// Position returns the current smoothed position estimate.
func (k *Kalman6) Position() Vec3 {
	return Vec3{k.state.AtVec(0), k.state.AtVec(1), k.state.AtVec(2)}
}

// Velocity returns the current smoothed velocity estimate.
func (k *Kalman6) Velocity() Vec3 {
	return Vec3{k.state.AtVec(3), k.state.AtVec(4), k.state.AtVec(5)}
}
