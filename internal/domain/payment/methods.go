package payment

// Info describes a payment method for display.
type Info struct {
	ID          Method `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Catalog returns the static list of offered payment methods.
func Catalog() []Info {
	return []Info{
		{ID: MethodCard, Name: "Credit/Debit Card", Description: "Visa, Mastercard, RuPay", Icon: "credit-card"},
		{ID: MethodUPI, Name: "UPI", Description: "PhonePe, Google Pay, Paytm", Icon: "smartphone"},
		{ID: MethodNetBanking, Name: "Net Banking", Description: "All major banks", Icon: "building"},
		{ID: MethodWallet, Name: "Wallets", Description: "Paytm, PhonePe, Amazon Pay", Icon: "wallet"},
		{ID: MethodCOD, Name: "Cash on Delivery", Description: "Pay when your order arrives", Icon: "banknote"},
	}
}
