package entities

type ReceiptData struct {
	BookingID          string
	LotName            string
	LotAddress         string
	SpotLabel          string
	StartTimeFormatted string
	EndTimeFormatted   string
	DurationHours      int
	AmountFormatted    string
	Status             string
	CurrentYear        int
}
