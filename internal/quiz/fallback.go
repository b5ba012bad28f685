package quiz

import (
	"slices"
	"strings"
)

// fallbackBank holds hand-written questions per subject so quiz generation
// keeps working when the model is unreachable or returns garbage.
var fallbackBank = map[string][]Question{
	"maths": {
		{
			Text:         "What is 1/2 + 1/3?",
			Options:      []string{"2/5", "5/6", "1/6", "3/5"},
			CorrectIndex: 1,
			Explanation:  "Use a common denominator of 6: 3/6 + 2/6 = 5/6.",
		},
		{
			Text:         "What is 3/4 - 1/8?",
			Options:      []string{"1/8", "5/8", "3/8", "7/8"},
			CorrectIndex: 1,
			Explanation:  "Convert 3/4 to 6/8, then 6/8 - 1/8 = 5/8.",
		},
		{
			Text:         "What is 15% of 200?",
			Options:      []string{"15", "25", "30", "35"},
			CorrectIndex: 2,
			Explanation:  "10% of 200 is 20 and 5% is 10, so 15% is 30.",
		},
		{
			Text:         "Simplify: 2(x + 3) - 4",
			Options:      []string{"2x + 2", "2x + 6", "2x - 1", "x + 2"},
			CorrectIndex: 0,
			Explanation:  "Expand to 2x + 6, then subtract 4 to get 2x + 2.",
		},
		{
			Text:         "What is the perimeter of a square with side 7 cm?",
			Options:      []string{"14 cm", "21 cm", "28 cm", "49 cm"},
			CorrectIndex: 2,
			Explanation:  "A square has four equal sides, so the perimeter is 4 x 7 = 28 cm.",
		},
	},
	"science": {
		{
			Text:         "Which gas do plants absorb during photosynthesis?",
			Options:      []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Hydrogen"},
			CorrectIndex: 1,
			Explanation:  "Plants take in carbon dioxide and release oxygen during photosynthesis.",
		},
		{
			Text:         "What force pulls objects towards the centre of the Earth?",
			Options:      []string{"Friction", "Magnetism", "Gravity", "Tension"},
			CorrectIndex: 2,
			Explanation:  "Gravity acts on every object, pulling it towards the Earth's centre.",
		},
		{
			Text:         "Which part of the cell controls its activities?",
			Options:      []string{"Cytoplasm", "Cell wall", "Nucleus", "Membrane"},
			CorrectIndex: 2,
			Explanation:  "The nucleus contains the genetic material that directs the cell.",
		},
		{
			Text:         "At what temperature in degrees Celsius does water boil at sea level?",
			Options:      []string{"90", "95", "100", "110"},
			CorrectIndex: 2,
			Explanation:  "Water boils at 100 degrees Celsius at standard atmospheric pressure.",
		},
		{
			Text:         "Which planet is known as the Red Planet?",
			Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectIndex: 1,
			Explanation:  "Mars appears red because of iron oxide on its surface.",
		},
	},
	"evs": {
		{
			Text:         "Which of these is a renewable source of energy?",
			Options:      []string{"Coal", "Petrol", "Solar power", "Natural gas"},
			CorrectIndex: 2,
			Explanation:  "Sunlight is naturally replenished, unlike fossil fuels.",
		},
		{
			Text:         "Which of the three Rs means using a thing again?",
			Options:      []string{"Reduce", "Reuse", "Recycle", "Refuse"},
			CorrectIndex: 1,
			Explanation:  "Reuse means using an item again instead of throwing it away.",
		},
		{
			Text:         "Which of these helps conserve water at home?",
			Options:      []string{"Leaving taps running", "Fixing leaking taps", "Washing cars daily", "Watering plants at noon"},
			CorrectIndex: 1,
			Explanation:  "A leaking tap wastes many litres of water every day.",
		},
		{
			Text:         "Where should vegetable peels go?",
			Options:      []string{"Landfill", "Compost pit", "River", "Roadside"},
			CorrectIndex: 1,
			Explanation:  "Vegetable waste breaks down into compost that enriches the soil.",
		},
		{
			Text:         "Which of these causes air pollution?",
			Options:      []string{"Planting trees", "Burning garbage", "Cycling", "Rainwater harvesting"},
			CorrectIndex: 1,
			Explanation:  "Burning waste releases harmful smoke and gases into the air.",
		},
	},
}

// fallbackQuestions returns up to n bank questions for the subject, or nil
// when the subject has no bank.
func fallbackQuestions(subject string, n int) []Question {
	bank, ok := fallbackBank[strings.ToLower(strings.TrimSpace(subject))]
	if !ok {
		return nil
	}
	if n > len(bank) {
		n = len(bank)
	}
	return slices.Clone(bank[:n])
}
