package parking

type Vehicle struct {
	RegistrationNumber string `json:"registration"`
}

// NewVehicle returns nil for an empty registration so anonymous parks carry
// no vehicle.
func NewVehicle(registrationNumber string) *Vehicle {
	if registrationNumber == "" {
		return nil
	}
	return &Vehicle{
		RegistrationNumber: registrationNumber,
	}
}
