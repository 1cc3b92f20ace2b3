package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
	"github.com/libralend/lending-core-go/postgres/internal/adapters"
)

const (
	actionGetAuthor    = "get author"
	actionListAuthors  = "list authors"
	actionCountBooks   = "count books by author"
	actionInsertAuthor = "insert author"
	actionUpdateAuthor = "update author"
	actionDeleteAuthor = "delete author"
)

func (q queries) authorSelect() *goqu.SelectDataset {
	return builder.From(q.tables.authors).
		Select(colID, colName, colBio, colCreatedAt)
}

func (q queries) GetAuthor(ctx context.Context, id uuid.UUID) (lending.Author, error) {
	dataset := q.authorSelect().Where(goqu.C(colID).Eq(id.String()))

	rows, err := q.runQuery(ctx, actionGetAuthor, dataset)
	if err != nil {
		return lending.Author{}, err
	}
	defer q.closeRows(rows)

	if !rows.Next() {
		return lending.Author{}, lending.ErrAuthorNotFound
	}

	return q.scanAuthor(rows)
}

func (q queries) ListAuthors(ctx context.Context, page lending.Page) ([]lending.Author, int, error) {
	total, err := q.countRows(ctx, actionListAuthors, builder.From(q.tables.authors))
	if err != nil {
		return nil, 0, err
	}

	dataset := q.authorSelect().
		Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset()))

	rows, err := q.runQuery(ctx, actionListAuthors, dataset)
	if err != nil {
		return nil, 0, err
	}
	defer q.closeRows(rows)

	var authors []lending.Author
	for rows.Next() {
		author, scanErr := q.scanAuthor(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}

		authors = append(authors, author)
	}

	return authors, total, nil
}

func (q queries) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	dataset := builder.From(q.tables.books).Where(goqu.C(colAuthorID).Eq(authorID.String()))

	return q.countRows(ctx, actionCountBooks, dataset)
}

func (q queries) InsertAuthor(ctx context.Context, author lending.Author) error {
	dataset := builder.Insert(q.tables.authors).Rows(goqu.Record{
		colID:        author.ID.String(),
		colName:      author.Name,
		colBio:       author.Bio,
		colCreatedAt: author.CreatedAt,
	})

	_, err := q.runExec(ctx, actionInsertAuthor, dataset)

	return err
}

func (q queries) UpdateAuthor(ctx context.Context, author lending.Author) error {
	dataset := builder.Update(q.tables.authors).
		Set(goqu.Record{colName: author.Name, colBio: author.Bio}).
		Where(goqu.C(colID).Eq(author.ID.String()))

	rowsAffected, err := q.runExec(ctx, actionUpdateAuthor, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrAuthorNotFound
	}

	return nil
}

func (q queries) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	dataset := builder.Delete(q.tables.authors).Where(goqu.C(colID).Eq(id.String()))

	rowsAffected, err := q.runExec(ctx, actionDeleteAuthor, dataset)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrAuthorNotFound
	}

	return nil
}

func (q queries) scanAuthor(rows adapters.DBRows) (lending.Author, error) {
	var row struct {
		id        string
		name      string
		bio       string
		createdAt time.Time
	}

	if err := rows.Scan(&row.id, &row.name, &row.bio, &row.createdAt); err != nil {
		q.logError(logMsgScanRowFailed, logAttrError, err.Error())
		return lending.Author{}, errors.Join(ErrScanFailed, err)
	}

	id, err := parseID(row.id)
	if err != nil {
		return lending.Author{}, err
	}

	return lending.Author{
		ID:        id,
		Name:      row.name,
		Bio:       row.bio,
		CreatedAt: row.createdAt.UTC(),
	}, nil
}
