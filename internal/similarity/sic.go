package similarity

// Industry labels keyed by full SIC 2007 code.
var sicLabels = map[string]string{
	"01110": "Crop Farming",
	"10710": "Bakery Manufacturing",
	"25620": "Machining",
	"41100": "Property Development",
	"41201": "Commercial Construction",
	"41202": "Residential Construction",
	"43999": "Specialised Construction",
	"45111": "Car Sales",
	"46110": "Agricultural Wholesale Agents",
	"46180": "Specialised Wholesale Agents",
	"46190": "General Wholesale Agents",
	"46341": "Beverage Wholesale",
	"46420": "Clothing Wholesale",
	"46450": "Cosmetics Wholesale",
	"46499": "Household Goods Wholesale",
	"46510": "Computer Equipment Wholesale",
	"46690": "Machinery Wholesale",
	"46900": "General Wholesale",
	"47110": "Supermarkets",
	"47190": "General Retail",
	"47710": "Clothing Retail",
	"47741": "Medical Goods Retail",
	"47910": "Online Retail",
	"47990": "Non-Store Retail",
	"49410": "Road Freight",
	"52290": "Freight Forwarding",
	"55100": "Hotels",
	"56101": "Restaurants",
	"58290": "Software Publishing",
	"62011": "Software Development",
	"62012": "Business Software",
	"62020": "IT Consultancy",
	"62090": "IT Services",
	"63110": "Data Processing & Hosting",
	"64191": "Banking",
	"64209": "Holding Companies",
	"64303": "Investment Trusts",
	"64999": "Financial Services",
	"66110": "Financial Markets Administration",
	"66120": "Securities Brokerage",
	"66190": "Financial Services Support",
	"66300": "Fund Management",
	"68100": "Property Trading",
	"68209": "Property Letting",
	"69102": "Legal Services",
	"69201": "Accountancy",
	"70100": "Head Office Activities",
	"70229": "Management Consultancy",
	"71129": "Engineering Consultancy",
	"73110": "Advertising",
	"74909": "Professional Services",
	"77390": "Equipment Rental",
	"78109": "Recruitment",
	"82990": "Business Support Services",
	"85590": "Education",
	"86900": "Healthcare",
	"96090": "Personal Services",
}

// Labels keyed by the first four digits of a SIC code.
var sicGroupLabels = map[string]string{
	"4611": "Wholesale Agents",
	"4619": "Wholesale Agents",
	"4631": "Food Wholesale",
	"4634": "Beverage Wholesale",
	"4641": "Textiles Wholesale",
	"4642": "Clothing Wholesale",
	"4649": "Household Goods Wholesale",
	"4669": "Machinery Wholesale",
	"4711": "Supermarkets",
	"4719": "General Retail",
	"4771": "Clothing Retail",
	"4791": "Online Retail",
	"4799": "Non-Store Retail",
	"6201": "Software Development",
	"6419": "Banking",
	"6499": "Financial Services",
	"6612": "Securities Brokerage",
	"6619": "Financial Services Support",
	"6820": "Property Letting",
	"7022": "Management Consultancy",
}

// Broad labels keyed by the first digit of a SIC code.
var sicSectionLabels = map[string]string{
	"0": "Agriculture & Mining",
	"1": "Manufacturing",
	"2": "Manufacturing",
	"3": "Utilities & Waste",
	"4": "Construction & Trade",
	"5": "Transport, Hospitality & Media",
	"6": "Finance, Technology & Property",
	"7": "Professional Services",
	"8": "Public Services & Education",
	"9": "Arts & Other Services",
}

const defaultIndustryLabel = "General Business"
