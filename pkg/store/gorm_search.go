package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
)

// summaryColumns selects every recurso column plus the linked names as
// comma-joined lists. Authors keep their link order.
const summaryColumns = `r.*,
	COALESCE((
		SELECT string_agg(x.nombreautor, ', ' ORDER BY x.orden, x.nombreautor)
		FROM (
			SELECT a.nombreautor, MIN(COALESCE(ra.orden, 2147483647)) AS orden
			FROM recurso_autor ra
			JOIN autor a ON a.idautor = ra.idautor
			WHERE ra.idrecurso = r.idrecurso
			GROUP BY a.nombreautor
		) x
	), '') AS autores,
	COALESCE((
		SELECT string_agg(DISTINCT t.nombretema, ', ' ORDER BY t.nombretema)
		FROM recurso_tema rt
		JOIN tema t ON t.idtema = rt.idtema
		WHERE rt.idrecurso = r.idrecurso
	), '') AS temas,
	COALESCE((
		SELECT string_agg(DISTINCT e.nombreetiqueta, ', ' ORDER BY e.nombreetiqueta)
		FROM recurso_etiqueta re
		JOIN etiqueta e ON e.idetiqueta = re.idetiqueta
		WHERE re.idrecurso = r.idrecurso
	), '') AS etiquetas`

type summaryRow struct {
	ResourceModel
	Authors string  `gorm:"column:autores"`
	Topics  string  `gorm:"column:temas"`
	Tags    string  `gorm:"column:etiquetas"`
	Rank    float64 `gorm:"column:rank"`
}

func (row summaryRow) summary() domain.ResourceSummary {
	return domain.ResourceSummary{
		Resource: resourceFromModel(row.ResourceModel),
		Authors:  row.Authors,
		Topics:   row.Topics,
		Tags:     row.Tags,
	}
}

type favoriteRow struct {
	ResourceModel
	Authors string    `gorm:"column:autores"`
	Topics  string    `gorm:"column:temas"`
	Tags    string    `gorm:"column:etiquetas"`
	AddedAt time.Time `gorm:"column:agregadofecha"`
}

// filtered starts a query over recurso AS r with every plan predicate.
func (s *GormStore) filtered(tx *gorm.DB, plan search.Plan) *gorm.DB {
	q := tx.Table("recurso AS r")
	for _, pred := range plan.Predicates {
		q = q.Where(pred.SQL(s.textConfig))
	}
	return q
}

// SearchResources runs the plan. The count and the page are read in one
// read-only repeatable-read transaction so total matches the page's snapshot.
func (s *GormStore) SearchResources(ctx context.Context, plan search.Plan) (domain.SearchPage, error) {
	page := domain.SearchPage{Limit: plan.Limit, Offset: plan.Offset, Results: []domain.SearchHit{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.filtered(tx, plan).Count(&page.Total).Error; err != nil {
			return fmt.Errorf("count resources: %w", err)
		}
		if page.Total == 0 || int64(plan.Offset) >= page.Total {
			return nil
		}

		q := s.filtered(tx, plan)
		if plan.Ranked() {
			q = q.Select(summaryColumns+", ? AS rank", plan.Rank.SQL(s.textConfig)).Order("rank DESC")
		} else {
			q = q.Select(summaryColumns+", CAST(? AS double precision) AS rank", 0.0)
		}
		var rows []summaryRow
		if err := q.Order("r.creadofecha DESC").
			Order("r.idrecurso DESC").
			Limit(plan.Limit).
			Offset(plan.Offset).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("search resources: %w", err)
		}
		for _, row := range rows {
			page.Results = append(page.Results, domain.SearchHit{ResourceSummary: row.summary(), Rank: row.Rank})
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.SearchPage{}, err
	}
	return page, nil
}

// ListResourcesByAuthor returns the summaries of resources linked to an author.
func (s *GormStore) ListResourcesByAuthor(ctx context.Context, authorID int64) ([]domain.ResourceSummary, error) {
	var rows []summaryRow
	if err := s.db.WithContext(ctx).
		Table("recurso AS r").
		Select(summaryColumns).
		Where("EXISTS (SELECT 1 FROM recurso_autor ra WHERE ra.idrecurso = r.idrecurso AND ra.idautor = ?)", authorID).
		Order("r.creadofecha DESC").
		Order("r.idrecurso DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResourceSummary, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.summary())
	}
	return res, nil
}

// ListFavorites returns the user's favorite resources, most recent first.
func (s *GormStore) ListFavorites(ctx context.Context, userID int64) ([]domain.FavoriteResource, error) {
	var rows []favoriteRow
	if err := s.db.WithContext(ctx).
		Table("favorito AS f").
		Joins("JOIN recurso r ON r.idrecurso = f.idrecurso").
		Select(summaryColumns + ", f.agregadofecha").
		Where("f.idusuario = ?", userID).
		Order("f.agregadofecha DESC").
		Order("r.idrecurso DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FavoriteResource, 0, len(rows))
	for _, row := range rows {
		summary := summaryRow{ResourceModel: row.ResourceModel, Authors: row.Authors, Topics: row.Topics, Tags: row.Tags}.summary()
		res = append(res, domain.FavoriteResource{ResourceSummary: summary, AddedAt: row.AddedAt})
	}
	return res, nil
}
