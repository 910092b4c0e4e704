// ABOUTME: Proportional-integral controller for drift correction
// ABOUTME: Smooths timing errors into a rate adjustment signal
package sync

// PIController is a discrete proportional-integral filter
type PIController struct {
	kp       float64
	ki       float64
	integral float64
}

// NewPIController creates a controller with the given gains
func NewPIController(kp, ki float64) *PIController {
	return &PIController{kp: kp, ki: ki}
}

// Compute feeds one error sample. timeScale is the time in seconds since the
// previous call, zero for the first call after a reset.
func (p *PIController) Compute(input, timeScale float64) float64 {
	p.integral += input * timeScale
	return p.integral*p.ki + input*p.kp
}

// Reset clears the integral term
func (p *PIController) Reset() {
	p.integral = 0
}
