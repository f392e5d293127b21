package seed

import (
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// Pharmacy ids
const (
	Mycelium = "PHARM01"
	Angel    = "PHARM02"
)

// InitialStock is placed at a medication's primary pharmacy on first seed.
const InitialStock = 50

// Pharmacies returns the partner pharmacies
func Pharmacies() []*domain.Pharmacy {
	return []*domain.Pharmacy{
		{
			ID:      Mycelium,
			Name:    "Mycelium Pharmacy",
			Contact: "George French",
			Email:   "admin@myceliumpharmacy.com",
			Phone:   "(786) 282-7349",
			Address: "Florida, USA",
			Licenses: []string{
				"Florida", "New Jersey", "Georgia", "North Carolina", "Pennsylvania",
				"Colorado", "Illinois", "Tennessee", "Arizona", "New York",
			},
			PaymentTerms: "Net 7",
		},
		{
			ID:      Angel,
			Name:    "Angel Pharmacy",
			Contact: "Michael Ibrahim",
			Email:   "management@angelpharmacy.org",
			Phone:   "(646) 280-9084",
			Address: "New York, USA",
			Licenses: []string{
				"Florida", "Ohio", "North Carolina", "Indiana", "Pennsylvania",
				"Rhode Island", "Illinois", "Washington DC", "Georgia", "Alabama",
				"Arizona", "Hawaii", "Delaware", "Wisconsin", "New York",
				"Missouri", "Connecticut", "Washington", "Colorado", "Idaho",
				"Maryland", "New Mexico", "New Jersey",
			},
			PaymentTerms: "Net 7",
		},
	}
}

func medication(code, name, category string, cost int64, primary string) *domain.Medication {
	return &domain.Medication{
		Code:              code,
		Name:              name,
		Category:          category,
		UnitCost:          decimal.NewFromInt(cost),
		ReorderLevel:      15,
		PrimaryPharmacyID: primary,
	}
}

// Medications returns the stocked catalog. Semaglutide is primarily held at
// Mycelium and tirzepatide at Angel.
func Medications() []*domain.Medication {
	const (
		glp1    = "GLP-1 Agonist"
		glp1gip = "GLP-1/GIP Agonist"
	)
	return []*domain.Medication{
		medication("SEM25", "SEMAGLUTIDE/CYANOCOBALAMIN (2.5mg/1mL) - 2.5mg", glp1, 30, Mycelium),
		medication("SEM5", "SEMAGLUTIDE/CYANOCOBALAMIN (2.5mg/1mL) - 5mg", glp1, 40, Mycelium),
		medication("SEM10", "SEMAGLUTIDE/CYANOCOBALAMIN (2.5mg/1mL) - 10mg", glp1, 70, Mycelium),
		medication("SEM125", "SEMAGLUTIDE/CYANOCOBALAMIN (2.5mg/1mL) - 12.5mg", glp1, 90, Mycelium),
		medication("TIRZ10", "TIRZEPATIDE/CYANOCOBALAMIN (10MG/1 MG/ML) - 10mg", glp1gip, 60, Angel),
		medication("TIRZ20", "TIRZEPATIDE/CYANOCOBALAMIN (10MG/2MG/ML) - 20mg", glp1gip, 80, Angel),
		medication("TIRZ30", "TIRZEPATIDE/CYANOCOBALAMIN (15MG/1 MG/ML) - 30mg", glp1gip, 90, Angel),
		medication("TIRZ60", "TIRZEPATIDE/CYANOCOBALAMIN (15MG/1 MG/ML) - 60mg", glp1gip, 130, Angel),
	}
}

// Account is a default login created by the seed
type Account struct {
	Email          string
	Password       string
	Name           string
	Role           string
	PharmacyAccess []string
}

// Accounts returns the default logins
func Accounts() []Account {
	return []Account{
		{"admin@meditrack.com", "admin123", "System Administrator", permissions.RoleAdmin, []string{Mycelium, Angel}},
		{"manager@meditrack.com", "manager123", "Pharmacy Manager", permissions.RolePharmacyManager, []string{Mycelium, Angel}},
		{"mycelium.staff@meditrack.com", "staff123", "Mycelium Staff", permissions.RoleStaff, []string{Mycelium}},
		{"angel.staff@meditrack.com", "staff123", "Angel Staff", permissions.RoleStaff, []string{Angel}},
	}
}
