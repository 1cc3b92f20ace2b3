package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/postgres/internal/adapters"
)

const (
	actionGetBook        = "get book"
	actionFindBookByISBN = "find book by isbn"
	actionSearchBooks    = "search books"
	actionInsertBook     = "insert book"
	actionUpdateBook     = "update book"
	actionDeleteBook     = "delete book"
	actionDecrementCopy  = "decrement available copies"
	actionIncrementCopy  = "increment available copies"

	aliasBooks   = "b"
	aliasAuthors = "a"
)

func (q queries) bookSelect() *goqu.SelectDataset {
	return builder.From(q.tables.books).
		Select(colID, colTitle, colISBN, colPublishedDate, colAuthorID, colTotalCopies, colAvailableCopies, colCreatedAt)
}

func (q queries) GetBook(ctx context.Context, id uuid.UUID) (lending.Book, error) {
	dataset := q.bookSelect().Where(goqu.C(colID).Eq(id.String()))

	return q.selectOneBook(ctx, actionGetBook, dataset)
}

func (q queries) FindBookByISBN(ctx context.Context, isbn string) (lending.Book, error) {
	dataset := q.bookSelect().Where(goqu.C(colISBN).Eq(isbn))

	return q.selectOneBook(ctx, actionFindBookByISBN, dataset)
}

func (q queries) selectOneBook(ctx context.Context, action string, dataset *goqu.SelectDataset) (lending.Book, error) {
	rows, err := q.runQuery(ctx, action, dataset)
	if err != nil {
		return lending.Book{}, err
	}
	defer q.closeRows(rows)

	if !rows.Next() {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return q.scanBook(rows)
}

// SearchBooks filters the catalog and returns one page plus the total count
// over the filtered set. The author join only happens when the search
// filters on author name.
func (q queries) SearchBooks(ctx context.Context, search lending.BookSearch, page lending.Page) ([]lending.Book, int, error) {
	filtered := q.searchDataset(search)

	total, err := q.countRows(ctx, actionSearchBooks, filtered)
	if err != nil {
		return nil, 0, err
	}

	dataset := filtered.
		Select(
			bookCol(colID), bookCol(colTitle), bookCol(colISBN), bookCol(colPublishedDate),
			bookCol(colAuthorID), bookCol(colTotalCopies), bookCol(colAvailableCopies), bookCol(colCreatedAt),
		).
		Order(bookCol(colTitle).Asc(), bookCol(colID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset()))

	rows, err := q.runQuery(ctx, actionSearchBooks, dataset)
	if err != nil {
		return nil, 0, err
	}
	defer q.closeRows(rows)

	var books []lending.Book
	for rows.Next() {
		book, scanErr := q.scanBook(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}

		books = append(books, book)
	}

	return books, total, nil
}

func (q queries) searchDataset(search lending.BookSearch) *goqu.SelectDataset {
	dataset := builder.From(goqu.T(q.tables.books).As(aliasBooks))

	if search.AuthorName != "" {
		dataset = dataset.
			Join(goqu.T(q.tables.authors).As(aliasAuthors), goqu.On(bookCol(colAuthorID).Eq(authorCol(colID)))).
			Where(authorCol(colName).ILike("%" + escapeLikePattern(search.AuthorName) + "%"))
	}

	if search.Title != "" {
		dataset = dataset.Where(bookCol(colTitle).ILike("%" + escapeLikePattern(search.Title) + "%"))
	}

	if search.ISBN != "" {
		dataset = dataset.Where(bookCol(colISBN).Eq(search.ISBN))
	}

	if search.AvailableOnly {
		dataset = dataset.Where(bookCol(colAvailableCopies).Gt(0))
	}

	return dataset
}

func (q queries) InsertBook(ctx context.Context, book lending.Book) error {
	dataset := builder.Insert(q.tables.books).Rows(goqu.Record{
		colID:              book.ID.String(),
		colTitle:           book.Title,
		colISBN:            nullableString(book.ISBN),
		colPublishedDate:   nullableTime(book.PublishedDate),
		colAuthorID:        book.AuthorID.String(),
		colTotalCopies:     book.TotalCopies,
		colAvailableCopies: book.AvailableCopies,
		colCreatedAt:       book.CreatedAt,
	})

	_, err := q.runExec(ctx, actionInsertBook, dataset)

	return err
}

func (q queries) UpdateBook(ctx context.Context, book lending.Book) error {
	dataset := builder.Update(q.tables.books).
		Set(goqu.Record{
			colTitle:           book.Title,
			colISBN:            nullableString(book.ISBN),
			colPublishedDate:   nullableTime(book.PublishedDate),
			colAuthorID:        book.AuthorID.String(),
			colTotalCopies:     book.TotalCopies,
			colAvailableCopies: book.AvailableCopies,
		}).
		Where(goqu.C(colID).Eq(book.ID.String()))

	rowsAffected, err := q.runExec(ctx, actionUpdateBook, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrBookNotFound
	}

	return nil
}

func (q queries) DeleteBook(ctx context.Context, id uuid.UUID) error {
	dataset := builder.Delete(q.tables.books).Where(goqu.C(colID).Eq(id.String()))

	rowsAffected, err := q.runExec(ctx, actionDeleteBook, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrBookNotFound
	}

	return nil
}

// DecrementAvailableCopies is the inventory race guard. The condition on
// available_copies makes concurrent borrows of the last copy serialize on
// the row: exactly one update reports a row affected, the rest report zero.
func (q queries) DecrementAvailableCopies(ctx context.Context, bookID uuid.UUID) (bool, error) {
	dataset := builder.Update(q.tables.books).
		Set(goqu.Record{colAvailableCopies: goqu.L(colAvailableCopies + " - 1")}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colAvailableCopies).Gt(0),
		)

	rowsAffected, err := q.runExec(ctx, actionDecrementCopy, dataset)
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (q queries) IncrementAvailableCopies(ctx context.Context, bookID uuid.UUID) error {
	dataset := builder.Update(q.tables.books).
		Set(goqu.Record{colAvailableCopies: goqu.L(colAvailableCopies + " + 1")}).
		Where(goqu.C(colID).Eq(bookID.String()))

	rowsAffected, err := q.runExec(ctx, actionIncrementCopy, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrBookNotFound
	}

	return nil
}

func (q queries) scanBook(rows adapters.DBRows) (lending.Book, error) {
	var row struct {
		id            string
		title         string
		isbn          sql.NullString
		publishedDate sql.NullTime
		authorID      string
		total         int
		available     int
		createdAt     time.Time
	}

	err := rows.Scan(
		&row.id, &row.title, &row.isbn, &row.publishedDate,
		&row.authorID, &row.total, &row.available, &row.createdAt,
	)
	if err != nil {
		q.logError(logMsgScanRowFailed, logAttrError, err.Error())
		return lending.Book{}, errors.Join(ErrScanFailed, err)
	}

	id, err := parseID(row.id)
	if err != nil {
		return lending.Book{}, err
	}

	authorID, err := parseID(row.authorID)
	if err != nil {
		return lending.Book{}, err
	}

	return lending.Book{
		ID:              id,
		Title:           row.title,
		ISBN:            row.isbn.String,
		PublishedDate:   timePtr(row.publishedDate),
		AuthorID:        authorID,
		TotalCopies:     row.total,
		AvailableCopies: row.available,
		CreatedAt:       row.createdAt.UTC(),
	}, nil
}

// escapeLikePattern neutralizes the ILIKE wildcards in a search term, so a
// literal % or _ in a title or author name matches literally.
func escapeLikePattern(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func bookCol(name string) exp.IdentifierExpression {
	return goqu.I(aliasBooks + "." + name)
}

func authorCol(name string) exp.IdentifierExpression {
	return goqu.I(aliasAuthors + "." + name)
}
