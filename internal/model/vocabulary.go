package model

// Suggested values for the web forms. The store accepts any non-empty text.
var (
	BagTypes = []string{
		"Backpack", "Handbag", "Tote Bag", "Clutch", "Crossbody", "Shoulder Bag",
		"Messenger Bag", "Duffel Bag", "Satchel", "Briefcase", "Hobo Bag", "Wallet",
	}

	BagColors = []string{
		"Black", "Brown", "Tan", "White", "Beige", "Navy", "Red", "Pink",
		"Purple", "Blue", "Green", "Yellow", "Orange", "Gray", "Gold", "Silver",
	}

	BagMaterials = []string{
		"Leather", "Canvas", "Synthetic", "Nylon", "Suede", "Fabric",
		"Denim", "Vinyl", "Mesh", "Faux Leather", "Cotton", "Polyester",
	}
)
