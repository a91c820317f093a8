package transaction

import "math"

type Summary struct {
	TotalIncome       Amount `json:"totalIncome"`
	TotalExpense      Amount `json:"totalExpense"`
	Balance           Amount `json:"balance"`
	IncomePercentage  int    `json:"incomePercentage"`
	ExpensePercentage int    `json:"expensePercentage"`
	Count             int    `json:"count"`
}

func TotalByType(items []Transaction, typ Type) Amount {
	var sum Amount
	for _, t := range items {
		if t.Type == typ {
			sum += t.Amount
		}
	}
	return sum
}

// Percentage returns round(part/total*100), or 0 when total is 0.
func Percentage(part, total Amount) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func Summarize(items []Transaction) Summary {
	income := TotalByType(items, TypeIncome)
	expense := TotalByType(items, TypeExpense)
	volume := income + expense

	return Summary{
		TotalIncome:       income,
		TotalExpense:      expense,
		Balance:           income - expense,
		IncomePercentage:  Percentage(income, volume),
		ExpensePercentage: Percentage(expense, volume),
		Count:             len(items),
	}
}
