package pkpass

import (
	"time"

	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/pkpass/models"
	"mobilid/internal/platform/config"
)

const currencyCode = "USD"

// Render fills the fixed template for rec. It is pure: the same record and
// config always produce the same document.
func Render(cfg config.Pass, rec passmodels.PassRecord) models.Document {
	a := rec.Attributes

	structure := models.Structure{
		PrimaryFields: []models.Field{
			models.Text("name", a.Name, ""),
		},
		SecondaryFields: []models.Field{
			models.Currency("cash", a.Balance, "Eagle Bucks", currencyCode).
				WithChangeMessage("You have %@ Eagle Bucks remaining.").
				WithAlignment(models.AlignLeft),
			models.Number("meals", a.MealsRemaining, "Meals Remaining").
				WithChangeMessage("You have %@ meal swipes remaining.").
				WithAlignment(models.AlignCenter),
			models.Text("ethos", a.KudosEarned+"/"+a.KudosRequired, "Kudos").
				WithChangeMessage("You have %@ Kudos of your Semester Goal.").
				WithAlignment(models.AlignRight),
		},
		BackFields: []models.Field{
			models.Text("pin", a.PIN, "ID Pin"),
			models.Currency("print", a.PrintBalance, "Print Balance", currencyCode).
				WithChangeMessage("Your print balance is now %@."),
		},
	}
	if a.Mailbox != "" {
		structure.BackFields = append(structure.BackFields, models.Text("boxnumber", a.Mailbox, "Mailbox Number"))
	}
	if cfg.Tribute != "" {
		structure.BackFields = append(structure.BackFields, models.Text("tribute", cfg.Tribute, "Created by"))
	}
	if cfg.ShowHashField {
		structure.BackFields = append(structure.BackFields, models.Text("hash", rec.VersionHash, "Pass Hash"))
	}

	barcode := models.QR(rec.VersionHash, rec.SerialNumber)
	doc := models.Document{
		FormatVersion:              1,
		PassTypeIdentifier:         rec.PassType,
		SerialNumber:               rec.SerialNumber,
		TeamIdentifier:             cfg.TeamIdentifier,
		OrganizationName:           cfg.OrganizationName,
		Description:                cfg.Description,
		SharingProhibited:          true,
		ForegroundColor:            cfg.ForegroundColor,
		BackgroundColor:            cfg.BackgroundColor,
		LabelColor:                 cfg.LabelColor,
		Barcode:                    &barcode,
		Barcodes:                   []models.Barcode{barcode},
		AssociatedStoreIdentifiers: cfg.AssociatedStoreIdentifiers,
		Generic:                    structure,
	}
	if doc.PassTypeIdentifier == "" {
		doc.PassTypeIdentifier = cfg.TypeIdentifier
	}
	if cfg.WebServiceURL != "" {
		doc.WebServiceURL = cfg.WebServiceURL
		doc.AuthenticationToken = rec.AuthToken
	}
	for _, l := range cfg.Locations {
		doc.Locations = append(doc.Locations, models.Location{
			Latitude:     l.Latitude,
			Longitude:    l.Longitude,
			RelevantText: l.RelevantText,
			MaxDistance:  l.MaxDistance,
		})
	}
	for _, b := range cfg.Beacons {
		doc.Beacons = append(doc.Beacons, models.Beacon{
			ProximityUUID: b.ProximityUUID,
			Major:         b.Major,
			Minor:         b.Minor,
			RelevantText:  b.RelevantText,
		})
	}
	if cfg.Expiration > 0 {
		doc.ExpirationDate = rec.LastUpdate.Add(cfg.Expiration).UTC().Format(time.RFC3339)
	}
	return doc
}
