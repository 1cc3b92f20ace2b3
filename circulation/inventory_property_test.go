package circulation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/libralend/lending-core-go/circulation"
	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/testutil/memstore"
)

type openLoan struct {
	recordID uuid.UUID
	userID   uuid.UUID
	bookID   uuid.UUID
}

// Drives random borrow / return / sweep sequences against the service and
// checks after every step that each book satisfies
// 0 <= available <= total and that available always equals total minus the
// number of open loans on the book.
func Test_Inventory_CopyCountsStayConsistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := memstore.New()
		clock := newFakeClock()

		service, err := circulation.NewService(store, circulation.WithClock(clock.Now))
		if err != nil {
			rt.Fatalf("service construction failed: %v", err)
		}

		userCount := rapid.IntRange(1, 4).Draw(rt, "userCount")
		users := make([]lending.User, userCount)
		for i := range users {
			users[i] = lending.User{
				ID:        uuid.New(),
				Email:     fmt.Sprintf("reader-%d@example.com", i),
				Username:  fmt.Sprintf("reader-%d", i),
				Active:    true,
				CreatedAt: clock.Now(),
			}
			store.SeedUser(users[i])
		}

		author := lending.Author{ID: uuid.New(), Name: "Some Author", CreatedAt: clock.Now()}
		store.SeedAuthor(author)

		bookCount := rapid.IntRange(1, 3).Draw(rt, "bookCount")
		books := make([]lending.Book, bookCount)
		totals := make(map[uuid.UUID]int, bookCount)
		for i := range books {
			total := rapid.IntRange(1, 3).Draw(rt, fmt.Sprintf("totalCopies-%d", i))
			books[i] = lending.Book{
				ID:              uuid.New(),
				Title:           fmt.Sprintf("Book %d", i),
				AuthorID:        author.ID,
				TotalCopies:     total,
				AvailableCopies: total,
				CreatedAt:       clock.Now(),
			}
			store.SeedBook(books[i])
			totals[books[i].ID] = total
		}

		var loans []openLoan

		rt.Repeat(map[string]func(*rapid.T){
			"borrow": func(rt *rapid.T) {
				user := users[rapid.IntRange(0, len(users)-1).Draw(rt, "userIdx")]
				book := books[rapid.IntRange(0, len(books)-1).Draw(rt, "bookIdx")]
				days := rapid.IntRange(lending.MinLoanDays, lending.MaxLoanDays).Draw(rt, "loanDays")

				record, borrowErr := service.BorrowBook(context.Background(), user.ID, book.ID, days)
				if borrowErr != nil {
					// the only legitimate rejections here are conflicts:
					// no copies left or a duplicate open borrow
					if !errors.Is(borrowErr, lending.ErrConflict) {
						rt.Fatalf("unexpected borrow failure: %v", borrowErr)
					}

					return
				}

				loans = append(loans, openLoan{recordID: record.ID, userID: user.ID, bookID: book.ID})
			},
			"return": func(rt *rapid.T) {
				if len(loans) == 0 {
					return
				}

				idx := rapid.IntRange(0, len(loans)-1).Draw(rt, "loanIdx")
				loan := loans[idx]

				if _, returnErr := service.ReturnBook(context.Background(), loan.userID, loan.recordID); returnErr != nil {
					rt.Fatalf("unexpected return failure: %v", returnErr)
				}

				loans = append(loans[:idx], loans[idx+1:]...)
			},
			"advance": func(rt *rapid.T) {
				hours := rapid.IntRange(1, 30*24).Draw(rt, "advanceHours")
				clock.Advance(time.Duration(hours) * time.Hour)
			},
			"sweep": func(rt *rapid.T) {
				if _, sweepErr := service.SweepOverdue(context.Background()); sweepErr != nil {
					rt.Fatalf("unexpected sweep failure: %v", sweepErr)
				}
			},
			"": func(rt *rapid.T) {
				openByBook := make(map[uuid.UUID]int)
				for _, loan := range loans {
					openByBook[loan.bookID]++
				}

				for _, book := range books {
					stored, getErr := store.GetBook(context.Background(), book.ID)
					if getErr != nil {
						rt.Fatalf("reading book back failed: %v", getErr)
					}

					total := totals[book.ID]
					if stored.TotalCopies != total {
						rt.Fatalf("total copies changed: got %d, want %d", stored.TotalCopies, total)
					}

					if stored.AvailableCopies < 0 || stored.AvailableCopies > total {
						rt.Fatalf("available copies %d out of bounds [0, %d]", stored.AvailableCopies, total)
					}

					if want := total - openByBook[book.ID]; stored.AvailableCopies != want {
						rt.Fatalf("available copies %d does not match %d open loans on %d total",
							stored.AvailableCopies, openByBook[book.ID], total)
					}
				}
			},
		})
	})
}
